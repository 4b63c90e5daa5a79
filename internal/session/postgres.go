package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend persists sessions through pgx. It implements Backend.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) CreateSession(ctx context.Context, s *Session) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, name, host_id, room_code, current_song_index, is_playing, progress, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, s.ID, s.Name, s.HostID, s.RoomCode, s.CurrentSongIndex, s.IsPlaying, s.Progress, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return err
	}

	for _, u := range s.Users {
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_users (session_id, user_id, user_name, avatar)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (session_id, user_id) DO NOTHING
		`, s.ID, u.ID, u.Name, u.Avatar); err != nil {
			return err
		}
	}
	for pos, song := range s.Playlist {
		if err := insertSong(ctx, tx, s.ID, song, pos); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (b *PostgresBackend) FetchActiveSessions(ctx context.Context) ([]Session, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, name, host_id, room_code, current_song_index, is_playing, progress, created_at, updated_at
		FROM sessions
		WHERE status = 'active'
		ORDER BY created_at ASC
		LIMIT 200
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.HostID,
			&s.RoomCode,
			&s.CurrentSongIndex,
			&s.IsPlaying,
			&s.Progress,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		if err := b.loadMembers(ctx, &sessions[i]); err != nil {
			return nil, err
		}
		if err := b.loadPlaylist(ctx, &sessions[i]); err != nil {
			return nil, err
		}
		// A persisted index can point past the playlist if rows were lost;
		// clamp instead of violating the invariant.
		if n := len(sessions[i].Playlist); n == 0 {
			sessions[i].CurrentSongIndex = 0
		} else if sessions[i].CurrentSongIndex >= n {
			sessions[i].CurrentSongIndex = n - 1
		}
	}
	return sessions, nil
}

func (b *PostgresBackend) loadMembers(ctx context.Context, s *Session) error {
	rows, err := b.pool.Query(ctx, `
		SELECT user_id, user_name, avatar
		FROM session_users
		WHERE session_id = $1
		ORDER BY joined_at ASC
	`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Avatar); err != nil {
			return err
		}
		s.Users = append(s.Users, u)
	}
	return rows.Err()
}

func (b *PostgresBackend) loadPlaylist(ctx context.Context, s *Session) error {
	rows, err := b.pool.Query(ctx, `
		SELECT id, title, artist, album, cover_url, duration_s, url, video_id, added_by, added_at
		FROM session_songs
		WHERE session_id = $1
		ORDER BY position ASC
	`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var song Song
		if err := rows.Scan(
			&song.ID,
			&song.Title,
			&song.Artist,
			&song.Album,
			&song.Cover,
			&song.Duration,
			&song.URL,
			&song.VideoID,
			&song.AddedBy,
			&song.AddedAt,
		); err != nil {
			return err
		}
		song.Votes = []string{}
		s.Playlist = append(s.Playlist, song)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range s.Playlist {
		voteRows, err := b.pool.Query(ctx, `
			SELECT user_id FROM song_votes WHERE song_id = $1 ORDER BY created_at ASC
		`, s.Playlist[i].ID)
		if err != nil {
			return err
		}
		for voteRows.Next() {
			var uid string
			if err := voteRows.Scan(&uid); err != nil {
				voteRows.Close()
				return err
			}
			s.Playlist[i].Votes = append(s.Playlist[i].Votes, uid)
		}
		voteRows.Close()
		if err := voteRows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (b *PostgresBackend) AddUserToSession(ctx context.Context, sessionID string, u User) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO session_users (session_id, user_id, user_name, avatar)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`, sessionID, u.ID, u.Name, u.Avatar)
	return err
}

func (b *PostgresBackend) AddSongToPlaylist(ctx context.Context, sessionID string, song Song) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var pos int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position)+1, 0) FROM session_songs WHERE session_id = $1
	`, sessionID).Scan(&pos); err != nil {
		return err
	}
	if err := insertSong(ctx, tx, sessionID, song, pos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertSong(ctx context.Context, tx pgx.Tx, sessionID string, song Song, pos int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO session_songs (id, session_id, title, artist, album, cover_url, duration_s, url, video_id, added_by, position, added_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, song.ID, sessionID, song.Title, song.Artist, song.Album, song.Cover, song.Duration, song.URL, song.VideoID, song.AddedBy, pos, song.AddedAt)
	return err
}

func (b *PostgresBackend) UpdateSessionTransport(ctx context.Context, sessionID string, t Transport) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE sessions
		SET current_song_index = $2,
			is_playing = $3,
			progress = $4,
			updated_at = now()
		WHERE id = $1 AND status = 'active'
	`, sessionID, t.CurrentSongIndex, t.IsPlaying, t.Progress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (b *PostgresBackend) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := b.pool.Exec(ctx, `
		UPDATE sessions SET status = 'ended', updated_at = now() WHERE id = $1
	`, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
