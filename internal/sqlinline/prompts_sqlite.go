package sqlinline

// SQLite dialect of the prompt queries, used by the embedded store.

const QSQLiteEnsureMigrations = `--sql e75652b1-ca28-4eac-815a-0faa4f1298d7
create table if not exists schema_migrations (version text primary key);
`

const QSQLiteMigrationApplied = `--sql 4f15544d-cdd1-4656-beab-0ace70ee76fe
select count(1) from schema_migrations where version = ?;
`

const QSQLiteRecordMigration = `--sql b1407e54-b3d6-4f63-a97d-74cc39ea7c47
insert into schema_migrations (version) values (?);
`

const QSQLiteInsertPrompt = `--sql 984b4080-f5b1-431f-bcb9-d269f05fe818
insert into prompts (
  id, title, category, subcategory, content, tags, style_tags, subject_tags,
  number, visibility, created_at, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const QSQLiteSelectPromptByID = `--sql 3d56b6fe-0188-4a5a-93e5-7364c1a1116e
select id, title, category, subcategory, content, tags, style_tags, subject_tags,
       number, preview_image_url, usage_count, is_favorite, visibility, created_at
from prompts
where id = ?;
`

const QSQLiteListPromptsMissingPreview = `--sql cd9dbf03-2128-4eec-995b-1b89c4dc39c8
select id, title, category, subcategory, content, tags, style_tags, subject_tags,
       number, preview_image_url, usage_count, is_favorite, visibility, created_at
from prompts
where preview_image_url is null or preview_image_url = ''
order by created_at desc, rowid desc;
`

const QSQLiteCountPromptsMissingPreview = `--sql 17a30a10-5965-4697-abcc-5f7a99d9d314
select count(1)
from prompts
where preview_image_url is null or preview_image_url = '';
`

const QSQLiteUpdatePromptPreview = `--sql b0f347b2-99ff-48e3-b953-8a1b6cf29bff
update prompts
set preview_image_url = ?,
    updated_at = ?
where id = ?;
`
