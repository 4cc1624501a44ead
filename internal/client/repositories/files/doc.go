// Package files is the structured half of the durable stage: one row per
// staged file, grouped by session and ordered by position.
//
//	repo := files.NewSQLiteRepository(tx)
//	_ = repo.DeleteAll(ctx)
//	_ = repo.Insert(ctx, rec)
//	recs, _ := repo.ListBySession(ctx, sessionID)
//	_ = repo.DeleteByID(ctx, id)
//
// Content is stored as a base64 data URL; see models.StagedRecord.
package files
