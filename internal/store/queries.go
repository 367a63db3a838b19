package store

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type InsertSnapshotParams struct {
	Fingerprint string
	Changes     int64
	FriendCount int64
	InGame      int64
	Body        string
	CreatedOn   int64
}

const insertSnapshot = `INSERT INTO snapshot (fingerprint, changes, friend_count, in_game, body, created_on)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertSnapshot(ctx context.Context, arg InsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, insertSnapshot,
		arg.Fingerprint, arg.Changes, arg.FriendCount, arg.InGame, arg.Body, arg.CreatedOn)

	return err
}

type Snapshot struct {
	SnapshotID  int64
	Fingerprint string
	Changes     int64
	FriendCount int64
	InGame      int64
	Body        string
	CreatedOn   int64
}

const recentSnapshots = `SELECT snapshot_id, fingerprint, changes, friend_count, in_game, body, created_on
FROM snapshot
ORDER BY snapshot_id DESC
LIMIT ?`

func (q *Queries) RecentSnapshots(ctx context.Context, limit int64) ([]Snapshot, error) {
	rows, err := q.db.QueryContext(ctx, recentSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Snapshot
	for rows.Next() {
		var i Snapshot
		if err := rows.Scan(&i.SnapshotID, &i.Fingerprint, &i.Changes, &i.FriendCount, &i.InGame, &i.Body,
			&i.CreatedOn); err != nil {
			return nil, err
		}

		items = append(items, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

const pruneSnapshots = `DELETE FROM snapshot
WHERE snapshot_id NOT IN (SELECT snapshot_id FROM snapshot ORDER BY snapshot_id DESC LIMIT ?)`

func (q *Queries) PruneSnapshots(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, pruneSnapshots, keep)

	return err
}

type InsertFetchErrorParams struct {
	Message   string
	Failures  int64
	CreatedOn int64
}

const insertFetchError = `INSERT INTO fetch_error (message, failures, created_on) VALUES (?, ?, ?)`

func (q *Queries) InsertFetchError(ctx context.Context, arg InsertFetchErrorParams) error {
	_, err := q.db.ExecContext(ctx, insertFetchError, arg.Message, arg.Failures, arg.CreatedOn)

	return err
}

type FetchError struct {
	FetchErrorID int64
	Message      string
	Failures     int64
	CreatedOn    int64
}

const recentFetchErrors = `SELECT fetch_error_id, message, failures, created_on
FROM fetch_error
ORDER BY fetch_error_id DESC
LIMIT ?`

func (q *Queries) RecentFetchErrors(ctx context.Context, limit int64) ([]FetchError, error) {
	rows, err := q.db.QueryContext(ctx, recentFetchErrors, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FetchError
	for rows.Next() {
		var i FetchError
		if err := rows.Scan(&i.FetchErrorID, &i.Message, &i.Failures, &i.CreatedOn); err != nil {
			return nil, err
		}

		items = append(items, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

const pruneFetchErrors = `DELETE FROM fetch_error
WHERE fetch_error_id NOT IN (SELECT fetch_error_id FROM fetch_error ORDER BY fetch_error_id DESC LIMIT ?)`

func (q *Queries) PruneFetchErrors(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(ctx, pruneFetchErrors, keep)

	return err
}

type InsertCacheHealthParams struct {
	Cache     string
	Failures  int64
	Error     string
	CreatedOn int64
}

const insertCacheHealth = `INSERT INTO cache_health (cache, failures, error, created_on) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertCacheHealth(ctx context.Context, arg InsertCacheHealthParams) error {
	_, err := q.db.ExecContext(ctx, insertCacheHealth, arg.Cache, arg.Failures, arg.Error, arg.CreatedOn)

	return err
}

const countCacheHealth = `SELECT count(*) FROM cache_health WHERE cache = ?`

func (q *Queries) CountCacheHealth(ctx context.Context, cache string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCacheHealth, cache)

	var count int64
	err := row.Scan(&count)

	return count, err
}
