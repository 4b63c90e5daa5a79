package session

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS sessions (
          id                 uuid PRIMARY KEY,
          name               TEXT NOT NULL,
          host_id            TEXT NOT NULL,
          room_code          TEXT NOT NULL DEFAULT '',
          current_song_index INT NOT NULL DEFAULT 0,
          is_playing         BOOLEAN NOT NULL DEFAULT FALSE,
          progress           INT NOT NULL DEFAULT 0,
          status             TEXT NOT NULL DEFAULT 'active',
          created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("session-service: migrate sessions: %v", err)
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS session_users (
          session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
          user_id    TEXT NOT NULL,
          user_name  TEXT NOT NULL DEFAULT '',
          avatar     TEXT NOT NULL DEFAULT '',
          joined_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (session_id, user_id)
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS session_songs (
          id         uuid PRIMARY KEY,
          session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
          title      TEXT NOT NULL,
          artist     TEXT NOT NULL DEFAULT '',
          album      TEXT NOT NULL DEFAULT '',
          cover_url  TEXT NOT NULL DEFAULT '',
          duration_s INT NOT NULL DEFAULT 0,
          url        TEXT NOT NULL DEFAULT '',
          video_id   TEXT NOT NULL DEFAULT '',
          added_by   TEXT NOT NULL,
          position   INT NOT NULL,
          added_at   TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_session_songs_position
      ON session_songs(session_id, position)
    `); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS song_votes (
          song_id    uuid NOT NULL REFERENCES session_songs(id) ON DELETE CASCADE,
          user_id    TEXT NOT NULL,
          created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
          PRIMARY KEY (song_id, user_id)
      )
    `); err != nil {
		return err
	}

	return nil
}
