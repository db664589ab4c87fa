// ABOUTME: Upload engine placing report photos in the drive's dated folder
// ABOUTME: Single-shot PUT below SmallFileLimit, otherwise a resumable session in fixed chunks
package upload

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/config"
	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"go.uber.org/zap"
)

const (
	// SmallFileLimit is the first size sent through an upload session.
	SmallFileLimit int64 = 4_000_000

	// ChunkSize is the byte-range size per session PUT. It must be a multiple of 320 KiB.
	ChunkSize int64 = 16 * 320 * 1024
)

// API is the set of drive calls the engine needs.
type API interface {
	FolderAPI
	PutContent(ctx context.Context, driveID, path, contentType string, data []byte) (*graph.DriveItem, error)
	CreateUploadSession(ctx context.Context, driveID, path string) (*graph.UploadSession, error)
	PutChunk(ctx context.Context, uploadURL string, chunk []byte, start, total int64) (*graph.ChunkResponse, error)
}

// Uploaded describes a stored photo.
type Uploaded struct {
	Name       string `json:"name"`
	RemotePath string `json:"remote_path"`
	URL        string `json:"url"`
	ItemID     string `json:"item_id"`
	Size       int64  `json:"size"`
	Chunked    bool   `json:"chunked"`
}

// Options configures an Engine. Zero values take the package defaults.
type Options struct {
	Location       *time.Location
	SmallFileLimit int64
	ChunkSize      int64
	Now            func() time.Time
	Logger         *zap.Logger
}

// Engine uploads photos one at a time.
type Engine struct {
	api         API
	provisioner *Provisioner
	loc         *time.Location
	smallLimit  int64
	chunkSize   int64
	now         func() time.Time
	log         *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(api API, opts Options) *Engine {
	e := &Engine{
		api:        api,
		loc:        opts.Location,
		smallLimit: opts.SmallFileLimit,
		chunkSize:  opts.ChunkSize,
		now:        opts.Now,
		log:        opts.Logger,
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.smallLimit <= 0 {
		e.smallLimit = SmallFileLimit
	}
	if e.chunkSize <= 0 {
		e.chunkSize = ChunkSize
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.provisioner = NewProvisioner(api, e.loc, e.log)
	return e
}

// Upload stores photo under basePath/YYYY/MM with a name qualified by the upload time
// and tag, and returns its durable URL.
func (e *Engine) Upload(ctx context.Context, driveID, basePath string, photo models.Photo, tag string) (*Uploaded, error) {
	ts := e.now().In(e.loc)

	partition, err := e.provisioner.EnsureFolder(ctx, driveID, basePath, ts)
	if err != nil {
		return nil, err
	}

	name := RemoteName(ts, tag, photo.Name, photo.ContentType)
	remotePath := config.CleanFolderPath(basePath + "/" + partition + "/" + name)
	size := int64(len(photo.Data))

	result := &Uploaded{Name: name, RemotePath: remotePath, Size: size}

	var item *graph.DriveItem
	if size < e.smallLimit {
		item, err = e.api.PutContent(ctx, driveID, remotePath, photo.ContentType, photo.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", name, err)
		}
	} else {
		result.Chunked = true
		if err := e.uploadChunked(ctx, driveID, remotePath, photo.Data); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", name, err)
		}
	}

	// Session completion responses are not a reliable source of the durable URL.
	if item == nil || item.WebURL == "" {
		item, err = e.api.GetItemByPath(ctx, driveID, remotePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read back %s: %w", remotePath, err)
		}
	}

	result.URL = item.WebURL
	result.ItemID = item.ID
	e.log.Info("photo uploaded",
		zap.String("path", remotePath),
		zap.Int64("size", size),
		zap.Bool("chunked", result.Chunked),
	)
	return result, nil
}

func (e *Engine) uploadChunked(ctx context.Context, driveID, remotePath string, data []byte) error {
	session, err := e.api.CreateUploadSession(ctx, driveID, remotePath)
	if err != nil {
		return err
	}

	total := int64(len(data))
	for start := int64(0); start < total; {
		end := min(start+e.chunkSize, total)

		resp, err := e.api.PutChunk(ctx, session.UploadURL, data[start:end], start, total)
		if err != nil {
			return err
		}
		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		default:
			return &graph.RemoteWriteError{
				Op:         "upload chunk",
				Endpoint:   fmt.Sprintf("%s bytes %d-%d/%d", remotePath, start, end-1, total),
				StatusCode: resp.StatusCode,
				Body:       string(resp.Body),
			}
		}

		e.log.Debug("chunk accepted",
			zap.String("path", remotePath),
			zap.Int64("start", start),
			zap.Int64("end", end),
			zap.Int("status", resp.StatusCode),
		)
		start = end
	}
	return nil
}

// ChunkCount returns how many session PUTs a file of size bytes takes.
func (e *Engine) ChunkCount(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + e.chunkSize - 1) / e.chunkSize
}

func splitPath(p string) []string {
	var out []string
	for _, segment := range strings.Split(p, "/") {
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}
