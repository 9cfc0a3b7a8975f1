package pipeline

import (
	"context"
	"sync"
	"time"

	inputredis "rotationwatch/internal/input/redis"
	"rotationwatch/internal/logger"
	"rotationwatch/internal/metrics"
	"rotationwatch/internal/monitor"
	"rotationwatch/internal/rules"
	"rotationwatch/internal/transform/rotation"
	"rotationwatch/pkg/models"
)

// MonitorPipeline consumes rotation events from Redis, tags them with
// indicator rules, runs them through the detection engine, and batches
// audit events out to the configured writer.
type MonitorPipeline struct {
	consumer      *inputredis.Consumer
	engine        rules.Engine
	mon           *monitor.Monitor
	queue         *AuditQueue
	writer        AuditWriter
	workers       int
	batchSize     int
	flushInterval time.Duration
}

// NewMonitorPipeline creates the pipeline.
func NewMonitorPipeline(consumer *inputredis.Consumer, engine rules.Engine, mon *monitor.Monitor, queue *AuditQueue, writer AuditWriter, workers, batchSize int, flushInterval time.Duration) *MonitorPipeline {
	return &MonitorPipeline{
		consumer:      consumer,
		engine:        engine,
		mon:           mon,
		queue:         queue,
		writer:        writer,
		workers:       workers,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Run starts the pipeline loop.
func (p *MonitorPipeline) Run(ctx context.Context) error {
	logger.Infof("Rotation monitor pipeline started")

	if p.workers <= 0 {
		p.workers = 4
	}
	if p.batchSize <= 0 {
		p.batchSize = 100
	}
	if p.flushInterval <= 0 {
		p.flushInterval = 2 * time.Second
	}

	msgCh := make(chan []byte, p.workers*4)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workerLoop(ctx, msgCh)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *MonitorPipeline) Close() error {
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			logger.Errorf("Failed to close audit writer: %v", err)
		}
	}
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

func (p *MonitorPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop redis message: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if payload == nil {
			continue
		}
		out <- payload

		// Drain a burst without blocking on every element.
		batch, err := p.consumer.PopBatch(ctx, p.batchSize-1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to drain redis batch: %v", err)
			continue
		}
		for _, msg := range batch {
			out <- msg
		}
	}
}

func (p *MonitorPipeline) workerLoop(ctx context.Context, in <-chan []byte) {
	for payload := range in {
		activity, err := rotation.Parse(payload)
		if err != nil {
			logger.Warnf("Failed to parse rotation event: %v", err)
			continue
		}

		if p.engine != nil {
			tags := p.engine.Apply(activity)
			if len(tags) > 0 {
				activity.IndicatorTags = tags
				metrics.IndicatorRuleMatches.Add(float64(len(tags)))
				for _, tag := range tags {
					if floor := rules.RiskFloor(tag.Severity); floor > activity.RiskScore {
						activity.RiskScore = floor
					}
				}
			}
		}

		p.mon.MonitorRotationRequest(ctx, activity)
	}
}

func (p *MonitorPipeline) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	var batch []*models.AuditEvent

	flush := func() {
		if p.writer == nil || len(batch) == 0 {
			return
		}
		for {
			if err := p.writer.WriteEvents(batch); err != nil {
				logger.Errorf("Failed to write audit events: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(1 * time.Second):
				}
				continue
			}
			batch = nil
			break
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case event := <-p.queue.Events():
			batch = append(batch, event)
			if len(batch) >= p.batchSize {
				flush()
			}
		}
	}
}
