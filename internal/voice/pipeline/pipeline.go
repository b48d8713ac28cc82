package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"q-pipecat/internal/observability"

	"github.com/google/uuid"
)

var (
	ErrNilSource       = errors.New("source channels cannot be nil")
	ErrNilSink         = errors.New("sink channels cannot be nil")
	ErrSinkNotAttached = errors.New("sink not connected")
	ErrAlreadyStarted  = errors.New("pipeline already started")
)

// AudioPipeline relays audio between the room (source) and the model (sink).
type AudioPipeline struct {
	id     string
	logger *observability.Logger

	// Source side: the media bridge to the room
	sourceIn  <-chan []byte // Caller audio
	sourceOut chan<- []byte // Agent audio to the caller

	// Sink side: the model session
	sinkIn    chan []byte   // Caller audio to the model
	sinkOut   <-chan []byte // Model audio
	closeSink sync.Once

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	stats PipelineStats
	mu    sync.RWMutex

	config PipelineConfig
}

type PipelineConfig struct {
	BufferSize    int           // Buffer size for the sink input channel
	SendTimeout   time.Duration // How long a send may block before the chunk is dropped
	EnableMetrics bool          // Enable byte statistics
}

type PipelineStats struct {
	BytesFromSource int64
	BytesToSource   int64
	BytesFromSink   int64
	BytesToSink     int64
	DroppedToSink   int
	DroppedToSource int
	StartTime       time.Time
	EndTime         time.Time
}

func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		BufferSize:    256,
		SendTimeout:   100 * time.Millisecond,
		EnableMetrics: true,
	}
}

func NewAudioPipeline(sourceIn <-chan []byte, sourceOut chan<- []byte, logger *observability.Logger, config PipelineConfig) (*AudioPipeline, error) {
	if sourceIn == nil || sourceOut == nil {
		return nil, ErrNilSource
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultConfig().SendTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AudioPipeline{
		id:        uuid.New().String(),
		logger:    logger,
		sourceIn:  sourceIn,
		sourceOut: sourceOut,
		ctx:       ctx,
		cancel:    cancel,
		config:    config,
	}, nil
}

func (p *AudioPipeline) ID() string {
	return p.id
}

// ConnectSink attaches the model side. inbound is owned by the pipeline and
// closed when the source ends or the pipeline stops.
func (p *AudioPipeline) ConnectSink(inbound chan []byte, outbound <-chan []byte) error {
	if inbound == nil || outbound == nil {
		return ErrNilSink
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.sinkIn = inbound
	p.sinkOut = outbound
	return nil
}

func (p *AudioPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.sinkIn == nil || p.sinkOut == nil {
		p.mu.Unlock()
		return ErrSinkNotAttached
	}
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.stats.StartTime = time.Now()

	// Merge contexts
	pipelineCtx, cancel := context.WithCancel(ctx)
	oldCancel := p.cancel
	p.ctx = observability.WithFields(pipelineCtx, observability.Field{Key: "pipeline_id", Value: p.id})
	p.cancel = func() {
		cancel()
		oldCancel()
	}
	p.mu.Unlock()

	p.logger.Info(p.ctx, fmt.Sprintf("Starting audio pipeline %s", p.id))

	p.wg.Add(2)
	go p.forwardSourceToSink()
	go p.forwardSinkToSource()

	return nil
}

func (p *AudioPipeline) forwardSourceToSink() {
	defer p.wg.Done()
	defer p.closeSinkInput()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug(p.ctx, "Source->Sink flow stopped: context cancelled")
			return

		case audio, ok := <-p.sourceIn:
			if !ok {
				p.logger.Info(p.ctx, "Source input channel closed")
				return
			}

			p.record(func(s *PipelineStats) { s.BytesFromSource += int64(len(audio)) })

			select {
			case p.sinkIn <- audio:
				p.record(func(s *PipelineStats) { s.BytesToSink += int64(len(audio)) })
			case <-time.After(p.config.SendTimeout):
				p.record(func(s *PipelineStats) { s.DroppedToSink++ })
				p.logger.Warn(p.ctx, "Sink input buffer full, dropping audio chunk")
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *AudioPipeline) forwardSinkToSource() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug(p.ctx, "Sink->Source flow stopped: context cancelled")
			return

		case audio, ok := <-p.sinkOut:
			if !ok {
				p.logger.Info(p.ctx, "Sink output channel closed")
				return
			}

			p.record(func(s *PipelineStats) { s.BytesFromSink += int64(len(audio)) })

			select {
			case p.sourceOut <- audio:
				p.record(func(s *PipelineStats) { s.BytesToSource += int64(len(audio)) })
			case <-time.After(p.config.SendTimeout):
				p.record(func(s *PipelineStats) { s.DroppedToSource++ })
				p.logger.Warn(p.ctx, "Source output buffer full, dropping audio chunk")
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *AudioPipeline) record(update func(s *PipelineStats)) {
	if !p.config.EnableMetrics {
		return
	}
	p.mu.Lock()
	update(&p.stats)
	p.mu.Unlock()
}

func (p *AudioPipeline) closeSinkInput() {
	p.closeSink.Do(func() {
		if p.sinkIn != nil {
			close(p.sinkIn)
		}
	})
}

// Stop cancels both flows and waits for them. It is safe to call more than once.
func (p *AudioPipeline) Stop() {
	p.mu.RLock()
	ctx := p.ctx
	p.mu.RUnlock()

	p.cancel()
	p.wg.Wait()
	p.closeSinkInput()

	p.mu.Lock()
	if p.stats.EndTime.IsZero() {
		p.stats.EndTime = time.Now()
	}
	p.mu.Unlock()

	stats := p.GetStats()
	p.logger.Info(ctx, fmt.Sprintf("Audio pipeline %s stopped: %d bytes in, %d bytes out, %d chunks dropped",
		p.id, stats.BytesFromSource, stats.BytesToSource, stats.DroppedToSink+stats.DroppedToSource))
}

func (p *AudioPipeline) GetStats() PipelineStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := p.stats
	if stats.EndTime.IsZero() && !stats.StartTime.IsZero() {
		stats.EndTime = time.Now()
	}
	return stats
}
