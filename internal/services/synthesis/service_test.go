package synthesis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxgate/voxgate/internal/audio"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/models"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/workerpool"
)

type stubEngine struct {
	speech models.SpeechAudio
	err    error
	calls  int
}

func (s *stubEngine) Synthesize(_ context.Context, _ string) (models.SpeechAudio, error) {
	s.calls++
	return s.speech, s.err
}

func (s *stubEngine) SampleRate() int {
	return s.speech.SampleRate
}

func TestSynthesizeEncodesWAV(t *testing.T) {
	engine := &stubEngine{speech: models.SpeechAudio{
		Samples:    models.Waveform{0, 0.25, -0.25, 0.5},
		SampleRate: 22050,
	}}
	svc := NewService(engine, nil, nil, nil)

	resp, err := svc.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, 22050, resp.SampleRate)
	require.Positive(t, resp.Duration)

	info, err := audio.ParseWAV(resp.Audio)
	require.NoError(t, err)
	require.Equal(t, 22050, info.SampleRate)
	require.Equal(t, 16, info.BitsPerSample)
	require.Equal(t, 4, info.SampleCount())
}

func TestSynthesizeWrapsEngineFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("voice exploded")}
	svc := NewService(engine, nil, nil, nil)

	_, err := svc.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "speech synthesis failed")
	require.Contains(t, err.Error(), "voice exploded")
}

func TestSynthesizeRunsOnPool(t *testing.T) {
	engine := &stubEngine{speech: models.SpeechAudio{
		Samples:    models.Waveform{0, 0},
		SampleRate: 16000,
	}}
	pool := workerpool.New(1, 2)
	defer pool.Close()

	svc := NewService(engine, pool, nil, nil)
	resp, err := svc.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Audio)
	require.Equal(t, 1, engine.calls)
}

func TestSynthesizeRecordsEngineMetrics(t *testing.T) {
	provider, err := observability.Setup(context.Background(), config.ObservabilityConfig{EnableMetrics: true})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	engine := &stubEngine{speech: models.SpeechAudio{
		Samples:    make(models.Waveform, 11025),
		SampleRate: 22050,
	}}
	svc := NewService(engine, nil, nil, provider)

	_, err = svc.Synthesize(context.Background(), "hello")
	require.NoError(t, err)

	failing := NewService(&stubEngine{err: errors.New("voice exploded")}, nil, nil, provider)
	_, err = failing.Synthesize(context.Background(), "hello")
	require.Error(t, err)

	body := scrapeMetrics(t, provider)
	require.Contains(t, body, `voxgate_engine_invocation_duration_seconds_count{engine="synthesis",status="ok"} 1`)
	require.Contains(t, body, `voxgate_engine_invocation_duration_seconds_count{engine="synthesis",status="error"} 1`)
	require.Contains(t, body, `voxgate_audio_seconds_total{engine="synthesis"} 0.5`)
}

func scrapeMetrics(t *testing.T, provider *observability.Provider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestSynthesizePassesThroughSaturation(t *testing.T) {
	engine := &stubEngine{speech: models.SpeechAudio{Samples: models.Waveform{0}, SampleRate: 16000}}
	pool := workerpool.New(1, 1)
	defer pool.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func() error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started
	// Fill the single queue slot without waiting on the result.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_ = pool.Do(canceled, func() error { return nil })

	_, err := NewService(engine, pool, nil, nil).Synthesize(context.Background(), "hi")
	require.ErrorIs(t, err, workerpool.ErrSaturated)
	close(block)
}
