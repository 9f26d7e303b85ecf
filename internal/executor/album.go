package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/immich-dedupe/pkg/immich"
)

// AlbumTransferResult records the album membership moves for one group.
type AlbumTransferResult struct {
	AlbumsTransferred int      `json:"albums_transferred"`
	AlbumNames        []string `json:"album_names,omitempty"`
	HadFailures       bool     `json:"had_failures"`
	Error             string   `json:"error,omitempty"`
}

const (
	albumRetryInitialDelay = 250 * time.Millisecond
	albumRetryMaxDuration  = 60 * time.Second
)

// transferAlbums moves the losers' album memberships onto the winner. The
// returned error is non-nil only for fatal (auth) failures; everything else
// is reported in the result so the caller can veto deletion.
func (e *Executor) transferAlbums(ctx context.Context, group Group) (*AlbumTransferResult, error) {
	result := &AlbumTransferResult{}
	log := zap.L().With(zap.String("group", group.ID))

	albums := make(map[string]immich.Album)
	var errMsgs []string

	loserIDs := make([]string, 0, len(group.Losers))
	for _, loser := range group.Losers {
		loserIDs = append(loserIDs, loser.AssetID)

		var found []immich.Album
		err := e.do(ctx, func(ctx context.Context) error {
			var err error
			found, err = e.client.GetAlbumsForAsset(ctx, loser.AssetID)
			return err
		})
		if err != nil {
			if immich.IsAuthError(err) {
				return result, err
			}
			result.HadFailures = true
			errMsgs = append(errMsgs, "list albums for "+loser.AssetID+": "+err.Error())
			continue
		}
		for _, album := range found {
			albums[album.ID] = album
		}
	}

	for id, album := range albums {
		err := e.transferAlbumWithRetry(ctx, id, group.WinnerID, loserIDs)
		if err != nil {
			if immich.IsAuthError(err) {
				return result, err
			}
			result.HadFailures = true
			errMsgs = append(errMsgs, "transfer album "+album.AlbumName+": "+err.Error())
			log.Warn("album transfer failed after retries",
				zap.String("album", album.AlbumName),
				zap.Error(err),
			)
			continue
		}
		result.AlbumsTransferred++
		result.AlbumNames = append(result.AlbumNames, album.AlbumName)
	}

	if len(errMsgs) > 0 {
		result.Error = strings.Join(errMsgs, "; ")
	}
	return result, nil
}

// transferAlbumWithRetry retries a single album transfer with exponential
// backoff (250ms doubling) for up to 60 seconds before giving up.
func (e *Executor) transferAlbumWithRetry(ctx context.Context, albumID, winnerID string, loserIDs []string) error {
	start := time.Now()
	delay := albumRetryInitialDelay

	for {
		err := e.transferAlbum(ctx, albumID, winnerID, loserIDs)
		if err == nil || immich.IsAuthError(err) {
			return err
		}

		if time.Since(start) >= albumRetryMaxDuration {
			return err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

func (e *Executor) transferAlbum(ctx context.Context, albumID, winnerID string, loserIDs []string) error {
	err := e.do(ctx, func(ctx context.Context) error {
		return e.client.AddToAlbum(ctx, albumID, []string{winnerID})
	})
	// The winner may already be in the album; that is not a failure.
	if err != nil && !isAlreadyInAlbum(err) {
		return err
	}

	return e.do(ctx, func(ctx context.Context) error {
		return e.client.RemoveFromAlbum(ctx, albumID, loserIDs)
	})
}

func isAlreadyInAlbum(err error) bool {
	var apiErr *immich.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already")
}
