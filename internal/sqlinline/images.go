package sqlinline

const QInsertImageAsset = `--sql 2caa5b21-4c2b-4b72-8a36-7d3d0f9b77a1
insert into image_assets (id, path, is_uploaded, extras, created_at)
values ($1::uuid, $2::text, $3::boolean, coalesce($4::jsonb, '{}'::jsonb), now())
returning created_at;
`

const QListImageAssets = `--sql 4b0e6d7a-91c3-4f2e-8d5b-6a1c2e9f0d33
select id, path, is_uploaded, extras, created_at
from image_assets
where is_uploaded = $1::boolean
order by created_at desc
limit 200;
`

const QSelectImageAssetByID = `--sql 7d2c4e1f-3a5b-4c6d-9e8f-0a1b2c3d4e5f
select id, path, is_uploaded, extras, created_at
from image_assets
where id = $1::uuid
limit 1;
`

const QSelectImageAssetByFilename = `--sql 9e3f5a7b-1c2d-4e6f-8a9b-c0d1e2f3a4b5
select id, path, is_uploaded, extras, created_at
from image_assets
where path like '%' || $1::text
order by created_at desc
limit 1;
`

const QDeleteImageAsset = `--sql c5d6e7f8-0a1b-4c2d-9e3f-4a5b6c7d8e9f
delete from image_assets
where id = $1::uuid;
`
