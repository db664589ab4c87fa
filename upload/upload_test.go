// ABOUTME: Tests for folder provisioning, remote naming, and the single-shot/chunked decision
// ABOUTME: Uses an in-memory drive that records every call
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type chunkCall struct {
	start, length, total int64
}

type fakeDrive struct {
	items        map[string]*graph.DriveItem
	creates      []string // parentID + "/" + name
	puts         []string
	sessions     int
	chunks       []chunkCall
	chunkStatus  func(call int) int
	nextID       int
	getItemCalls int
	lookupErr    map[string]error
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{items: map[string]*graph.DriveItem{}}
}

func (f *fakeDrive) id() string {
	f.nextID++
	return fmt.Sprintf("item-%d", f.nextID)
}

func (f *fakeDrive) GetItemByPath(ctx context.Context, driveID, path string) (*graph.DriveItem, error) {
	f.getItemCalls++
	if err, ok := f.lookupErr[path]; ok {
		return nil, err
	}
	if item, ok := f.items[path]; ok {
		return item, nil
	}
	return nil, &graph.HTTPError{Op: "get item", StatusCode: http.StatusNotFound, Code: "itemNotFound"}
}

func (f *fakeDrive) CreateFolder(ctx context.Context, driveID, parentID, name string) (*graph.DriveItem, error) {
	f.creates = append(f.creates, parentID+"/"+name)
	parentPath := ""
	for path, item := range f.items {
		if item.ID == parentID {
			parentPath = path
		}
	}
	path := name
	if parentPath != "" {
		path = parentPath + "/" + name
	}
	item := &graph.DriveItem{ID: f.id(), Name: name, Folder: &graph.FolderFacet{}}
	f.items[path] = item
	return item, nil
}

func (f *fakeDrive) PutContent(ctx context.Context, driveID, path, contentType string, data []byte) (*graph.DriveItem, error) {
	f.puts = append(f.puts, path)
	item := &graph.DriveItem{ID: f.id(), Name: path, Size: int64(len(data)), WebURL: "https://contoso.example/" + path}
	f.items[path] = item
	return item, nil
}

func (f *fakeDrive) CreateUploadSession(ctx context.Context, driveID, path string) (*graph.UploadSession, error) {
	f.sessions++
	f.items[path] = &graph.DriveItem{ID: f.id(), WebURL: "https://contoso.example/" + path}
	return &graph.UploadSession{UploadURL: "https://upload.example/session"}, nil
}

func (f *fakeDrive) PutChunk(ctx context.Context, uploadURL string, chunk []byte, start, total int64) (*graph.ChunkResponse, error) {
	f.chunks = append(f.chunks, chunkCall{start: start, length: int64(len(chunk)), total: total})
	status := http.StatusAccepted
	if f.chunkStatus != nil {
		status = f.chunkStatus(len(f.chunks))
	} else if start+int64(len(chunk)) == total {
		status = http.StatusCreated
	}
	return &graph.ChunkResponse{StatusCode: status, Body: []byte(`{"error":"nope"}`)}, nil
}

var kolkata = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
	return loc
}()

func TestEnsureFolderIsIdempotent(t *testing.T) {
	drive := newFakeDrive()
	drive.items["Recon"] = &graph.DriveItem{ID: "recon-id"}
	p := NewProvisioner(drive, kolkata, nil)
	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, kolkata)

	sub, err := p.EnsureFolder(context.Background(), "drive", "/Recon//Photos/", ts)
	require.NoError(t, err)
	assert.Equal(t, "2024/03", sub)
	assert.Len(t, drive.creates, 3, "one create per missing segment")
	assert.Equal(t, "recon-id/Photos", drive.creates[0])

	drive.creates = nil
	sub, err = p.EnsureFolder(context.Background(), "drive", "/Recon//Photos/", ts)
	require.NoError(t, err)
	assert.Equal(t, "2024/03", sub)
	assert.Empty(t, drive.creates, "second call creates nothing")
}

func TestEnsureFolderTopLevelUsesRootChildren(t *testing.T) {
	drive := newFakeDrive()
	p := NewProvisioner(drive, kolkata, nil)

	_, err := p.EnsureFolder(context.Background(), "drive", "", time.Date(2024, 1, 2, 0, 0, 0, 0, kolkata))
	require.NoError(t, err)
	require.Len(t, drive.creates, 2)
	assert.Equal(t, "/2024", drive.creates[0], "top-level segment has no parent id")
	assert.True(t, strings.HasSuffix(drive.creates[1], "/01"))
	assert.NotEqual(t, "/01", drive.creates[1])
}

func TestEnsureFolderCreatesAfterFailedLookup(t *testing.T) {
	drive := newFakeDrive()
	drive.items["Recon"] = &graph.DriveItem{ID: "recon-id"}
	drive.lookupErr = map[string]error{
		"Recon/2024": &graph.HTTPError{Op: "get item", StatusCode: http.StatusServiceUnavailable, Code: "serviceNotAvailable"},
	}
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewProvisioner(drive, kolkata, zap.New(core))

	_, err := p.EnsureFolder(context.Background(), "drive", "Recon", time.Date(2024, 3, 15, 10, 0, 0, 0, kolkata))
	require.NoError(t, err)
	assert.Equal(t, []string{"recon-id/2024", "item-1/03"}, drive.creates)

	warned := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("folder lookup failed; creating it anyway").All()
	require.Len(t, warned, 1, "only the non-404 lookup is warned about")
	assert.Equal(t, "Recon/2024", warned[0].ContextMap()["path"])
	assert.Equal(t, 1, logs.FilterMessage("creating folder").Len(), "a missing folder is a debug entry")
}

func TestPartitionUsesOperationalZone(t *testing.T) {
	p := NewProvisioner(newFakeDrive(), kolkata, nil)
	// 20:00 UTC on the last day of the month is already the next month in Kolkata.
	ts := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024/02", p.Partition(ts))
}

func TestRemoteName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 7, 3, 42_000_000, kolkata)

	tests := []struct {
		tag, original, contentType, want string
	}{
		{"Rampur Block-7", "IMG 0012.JPG", "image/jpeg", "20240305T090703042_Rampur-Block-7_IMG-0012.jpg"},
		{"", "", "image/png", "20240305T090703042_untagged_photo.png"},
		{"  Año  ", "scan", "", "20240305T090703042_Ano_scan.bin"},
		{"x", "C:\\Users\\field\\dam.heic", "image/heic", "20240305T090703042_x_dam.heic"},
		{"--!!--", "noext", "image/heic", "20240305T090703042_untagged_noext.heic"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemoteName(ts, tt.tag, tt.original, tt.contentType))
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	assert.Equal(t, strings.Repeat("a", 60), Sanitize(strings.Repeat("a", 60)+" b"))
	assert.Equal(t, strings.Repeat("a", 59), Sanitize(strings.Repeat("a", 59)+" b"), "trailing hyphen is trimmed after the cap")
	assert.Equal(t, "रामपुर", Sanitize("रामपुर"))
}

func testEngine(drive *fakeDrive, opts Options) *Engine {
	opts.Location = kolkata
	opts.Now = func() time.Time { return time.Date(2024, 3, 5, 9, 7, 3, 0, kolkata) }
	return NewEngine(drive, opts)
}

func TestUploadThresholdBoundary(t *testing.T) {
	drive := newFakeDrive()
	engine := testEngine(drive, Options{})

	small, err := engine.Upload(context.Background(), "drive", "Recon", models.Photo{Name: "a.jpg", Data: make([]byte, 3_999_999)}, "tag")
	require.NoError(t, err)
	assert.False(t, small.Chunked)
	assert.Len(t, drive.puts, 1)
	assert.Equal(t, 0, drive.sessions)

	large, err := engine.Upload(context.Background(), "drive", "Recon", models.Photo{Name: "b.jpg", Data: make([]byte, 4_000_000)}, "tag")
	require.NoError(t, err)
	assert.True(t, large.Chunked)
	assert.Len(t, drive.puts, 1)
	assert.Equal(t, 1, drive.sessions)
	assert.Equal(t, "Recon/2024/03/20240305T090703000_tag_b.jpg", large.RemotePath)
	assert.Equal(t, "https://contoso.example/"+large.RemotePath, large.URL, "URL comes from the read-back")
}

func TestChunkRangesPartitionFile(t *testing.T) {
	const chunk = 320 * 1024
	for _, size := range []int64{4 * chunk, 4*chunk + 1, 10*chunk - 7} {
		drive := newFakeDrive()
		engine := testEngine(drive, Options{SmallFileLimit: 1, ChunkSize: chunk})

		_, err := engine.Upload(context.Background(), "drive", "Recon", models.Photo{Name: "big.jpg", Data: make([]byte, size)}, "t")
		require.NoError(t, err)

		want := (size + chunk - 1) / chunk
		require.Len(t, drive.chunks, int(want), "size %d", size)
		assert.Equal(t, want, engine.ChunkCount(size))

		var next int64
		for _, c := range drive.chunks {
			assert.Equal(t, next, c.start, "ranges are contiguous")
			assert.Equal(t, size, c.total)
			assert.LessOrEqual(t, c.length, int64(chunk))
			next += c.length
		}
		assert.Equal(t, size, next, "ranges cover the whole file")
	}
}

func TestDefaultChunkSizeIsMultipleOf320KiB(t *testing.T) {
	assert.Zero(t, ChunkSize%(320*1024))
	assert.Equal(t, int64(5*1024*1024), ChunkSize)
}

func TestRejectedChunkAbortsWithBody(t *testing.T) {
	drive := newFakeDrive()
	drive.chunkStatus = func(call int) int {
		if call == 2 {
			return http.StatusRequestedRangeNotSatisfiable
		}
		return http.StatusAccepted
	}
	engine := testEngine(drive, Options{SmallFileLimit: 1, ChunkSize: 320 * 1024})

	_, err := engine.Upload(context.Background(), "drive", "Recon", models.Photo{Name: "big.jpg", Data: make([]byte, 3*320*1024)}, "t")
	var writeErr *graph.RemoteWriteError
	require.True(t, errors.As(err, &writeErr), "expected RemoteWriteError, got %v", err)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, writeErr.StatusCode)
	assert.Contains(t, writeErr.Body, "nope")
	assert.Len(t, drive.chunks, 2, "no chunks after the rejected one")
}
