package sqlinline

const QEnsurePromptSchema = `--sql a96c6137-96bd-4ea7-a82d-a8ed33a84d75
create table if not exists prompts (
  id uuid primary key,
  title text not null,
  category text not null default 'General',
  subcategory text,
  content text not null,
  tags text[] not null default '{}',
  style_tags text[] not null default '{}',
  subject_tags text[] not null default '{}',
  number int,
  preview_image_url text,
  usage_count int not null default 0,
  is_favorite boolean not null default false,
  visibility text not null default 'private',
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
create index if not exists prompts_missing_preview_idx
  on prompts (created_at desc)
  where preview_image_url is null or preview_image_url = '';
create table if not exists integration_tokens (
  id uuid primary key default gen_random_uuid(),
  provider text not null unique,
  token text not null,
  properties jsonb not null default '{}'::jsonb,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`

const QInsertPrompt = `--sql a046bec7-a290-4946-a50f-82a4913a1331
insert into prompts(
  id,
  title,
  category,
  subcategory,
  content,
  tags,
  style_tags,
  subject_tags,
  number,
  visibility,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  nullif($4::text, ''),
  $5::text,
  $6::text[],
  $7::text[],
  $8::text[],
  $9::int,
  $10::text,
  now(),
  now()
) returning created_at;
`

const QSelectPromptByID = `--sql 2f4246c9-b4bd-42e0-b94d-e40a78ad7dba
select id::text, title, category, subcategory, content, tags, style_tags, subject_tags,
       number, preview_image_url, usage_count, is_favorite, visibility, created_at
from prompts
where id = $1::uuid
limit 1;
`

const QListPromptsMissingPreview = `--sql 1a425375-7cb6-4cf5-a891-ed80672ca0d7
select id::text, title, category, subcategory, content, tags, style_tags, subject_tags,
       number, preview_image_url, usage_count, is_favorite, visibility, created_at
from prompts
where preview_image_url is null or preview_image_url = ''
order by created_at desc, id desc;
`

const QCountPromptsMissingPreview = `--sql 6d739b6b-639d-4576-9b25-af6b82dad906
select count(*)::int
from prompts
where preview_image_url is null or preview_image_url = '';
`

const QUpdatePromptPreview = `--sql 5eafa0f4-7abb-4f63-a19e-531becc23a4f
update prompts
set preview_image_url = $2::text,
    updated_at = now()
where id = $1::uuid;
`
