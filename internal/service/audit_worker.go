package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/caseqc/internal/metrics"
	"github.com/persistorai/caseqc/internal/models"
)

// Auditor appends standalone audit entries.
type Auditor interface {
	RecordAudit(ctx context.Context, entry *models.AuditEntry) error
}

// AuditEnqueuer accepts audit entries for asynchronous recording.
type AuditEnqueuer interface {
	Enqueue(entry *models.AuditEntry)
}

// AuditWorker buffers audit entries and writes them via a single worker goroutine.
// Entries written inside an approval transaction never go through here; it
// carries only records of actions that change nothing, such as denied reads.
type AuditWorker struct {
	auditor Auditor
	log     *logrus.Logger
	jobs    chan *models.AuditEntry
}

// NewAuditWorker creates an AuditWorker with the given queue capacity.
func NewAuditWorker(auditor Auditor, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &AuditWorker{
		auditor: auditor,
		log:     log,
		jobs:    make(chan *models.AuditEntry, queueSize),
	}
}

// Enqueue adds an audit entry. Non-blocking; drops the entry if the queue is full.
func (w *AuditWorker) Enqueue(entry *models.AuditEntry) {
	select {
	case w.jobs <- entry:
		metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
	default:
		metrics.AuditDropped.Inc()
		w.log.WithFields(logrus.Fields{
			"action":    entry.Action,
			"review_id": entry.ReviewID,
		}).Warn("audit queue full, dropping entry")
	}
}

// Run processes audit entries until the context is cancelled, then drains remaining entries.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case entry := <-w.jobs:
			w.process(entry)
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case entry := <-w.jobs:
			w.process(entry)
		default:
			return
		}
	}
}

func (w *AuditWorker) process(entry *models.AuditEntry) {
	metrics.AuditQueueDepth.Set(float64(len(w.jobs)))

	if err := w.auditor.RecordAudit(context.Background(), entry); err != nil {
		w.log.WithError(err).WithField("action", entry.Action).Warn("audit record failed")
	}
}
