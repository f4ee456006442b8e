package db

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS station (
	name TEXT PRIMARY KEY,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS photo_logs (
	id UUID PRIMARY KEY,
	station_name TEXT NOT NULL,
	photo_url TEXT NOT NULL,
	object_key TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photo_logs_station_ts ON photo_logs(station_name, timestamp DESC);

CREATE TABLE IF NOT EXISTS prevention (
	id SERIAL PRIMARY KEY,
	station_name TEXT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	morning_prev TEXT NOT NULL DEFAULT '',
	afternoon_prev TEXT NOT NULL DEFAULT '',
	morning_jellyfish TEXT NOT NULL DEFAULT '',
	afternoon_jellyfish TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_prevention_created_at ON prevention(created_at DESC);
`

// timestamps are unix milliseconds in SQLite
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS station (
	name TEXT PRIMARY KEY,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS photo_logs (
	id TEXT PRIMARY KEY,
	station_name TEXT NOT NULL,
	photo_url TEXT NOT NULL,
	object_key TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photo_logs_station_ts ON photo_logs(station_name, timestamp DESC);

CREATE TABLE IF NOT EXISTS prevention (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	station_name TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	morning_prev TEXT NOT NULL DEFAULT '',
	afternoon_prev TEXT NOT NULL DEFAULT '',
	morning_jellyfish TEXT NOT NULL DEFAULT '',
	afternoon_jellyfish TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prevention_created_at ON prevention(created_at DESC);
`
