package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"project4869/internal/assemble"
	"project4869/internal/config"
	"project4869/internal/extract"
	"project4869/internal/model"
	"project4869/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const pageHTML = `<html><body>
<div class="item"><div>1190 消失于恋谷桥的恋人</div><div class="res">1080P·简日MP4 <input class="reslink" value="magnet:?xt=urn:btih:aaa"></div></div>
<div class="item"><div>1191 名侦探的新娘</div><div class="res">720P·繁日MKV <input class="reslink" value="magnet:?xt=urn:btih:bbb"></div></div>
</body></html>`

type stubFetcher struct {
	html    string
	err     error
	release chan struct{}
	urls    chan string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.urls != nil {
		f.urls <- url
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.html, f.err
}

type countingStore struct {
	records []model.Record
}

func (s *countingStore) UpsertBatch(_ context.Context, records []model.Record) model.BatchResult {
	s.records = append(s.records, records...)
	return model.BatchResult{Inserted: len(records)}
}

func newTestService(fetcher *stubFetcher, store pipeline.Store) *ScrapeService {
	assembler := assemble.NewAssembler(extract.NewExtractor(model.SubtitleVerbatim))
	p := pipeline.New(config.DefaultProfile(), assembler, store, 10, zap.NewNop())
	return NewScrapeService(fetcher, p, nil, "https://example.com/list", zap.NewNop())
}

func TestScrapeService_ScrapeURL(t *testing.T) {
	store := &countingStore{}
	svc := newTestService(&stubFetcher{html: pageHTML}, store)

	result, err := svc.ScrapeURL(context.Background(), "https://example.com/list", "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, store.records, 2)
	assert.Equal(t, "1191", store.records[1].Episode)
}

func TestScrapeService_ScrapeURLFetchError(t *testing.T) {
	svc := newTestService(&stubFetcher{err: errors.New("status 403")}, &countingStore{})

	_, err := svc.ScrapeURL(context.Background(), "https://example.com/list", "")
	assert.Error(t, err)
}

func TestScrapeService_RunFullSingleFlight(t *testing.T) {
	fetcher := &stubFetcher{
		html:    pageHTML,
		release: make(chan struct{}),
		urls:    make(chan string, 1),
	}
	store := &countingStore{}
	svc := newTestService(fetcher, store)
	defer svc.Close()

	require.NoError(t, svc.TriggerFull())

	select {
	case url := <-fetcher.urls:
		assert.Equal(t, "https://example.com/list", url)
	case <-time.After(2 * time.Second):
		t.Fatal("full scrape did not start")
	}

	assert.True(t, svc.Running())
	assert.ErrorIs(t, svc.TriggerFull(), ErrScrapeRunning)
	_, err := svc.RunFull(context.Background())
	assert.ErrorIs(t, err, ErrScrapeRunning)

	close(fetcher.release)
	svc.Wait()

	assert.False(t, svc.Running())
	assert.Len(t, store.records, 2)
}

func TestScrapeService_MonitorNotConfigured(t *testing.T) {
	svc := newTestService(&stubFetcher{}, &countingStore{})

	_, err := svc.Monitor(context.Background())
	assert.Error(t, err)
}
