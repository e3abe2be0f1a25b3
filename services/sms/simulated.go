package smssvc

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestiabsences/backend/core"
)

// SimulatedMessage is one entry of the simulated transport's message log.
type SimulatedMessage struct {
	ID      string
	To      string
	Body    string
	SentAt  time.Time
	Success bool
}

// SimulatedService mimics a provider without touching the network: each send
// sleeps for a random latency and succeeds with probability SuccessRate.
// The knobs are exported so tests can force deterministic outcomes.
type SimulatedService struct {
	SuccessRate float64
	MinLatency  time.Duration
	MaxLatency  time.Duration

	logger core.Logger

	mu       sync.Mutex
	rnd      *rand.Rand
	seq      int
	messages []SimulatedMessage
}

var _ core.SMSService = (*SimulatedService)(nil)

func NewSimulatedService(logger core.Logger) *SimulatedService {
	return &SimulatedService{
		SuccessRate: .98,
		MinLatency:  200 * time.Millisecond,
		MaxLatency:  500 * time.Millisecond,
		logger:      logger,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (svc *SimulatedService) Send(ctx context.Context, to, message string) core.SMSResult {
	svc.mu.Lock()
	latency := svc.MinLatency
	if spread := svc.MaxLatency - svc.MinLatency; spread > 0 {
		latency += time.Duration(svc.rnd.Int63n(int64(spread)))
	}
	success := svc.rnd.Float64() < svc.SuccessRate
	svc.seq++
	seq := svc.seq
	svc.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return core.SMSResult{Error: ctx.Err().Error()}
	}

	res := core.SMSResult{Success: success}
	if success {
		res.MessageID = fmt.Sprintf("simulated_%d_%d", time.Now().UnixNano(), seq)
	} else {
		res.Error = "échec simulé de l'envoi"
	}

	svc.mu.Lock()
	svc.messages = append(svc.messages, SimulatedMessage{
		ID:      uuid.NewString(),
		To:      to,
		Body:    message,
		SentAt:  time.Now().UTC(),
		Success: success,
	})
	svc.mu.Unlock()

	if svc.logger != nil {
		svc.logger.Debug(fmt.Sprintf("SMS simulé vers %s (succès: %t)", to, success))
	}
	return res
}

// Messages returns a copy of the message log, oldest first.
func (svc *SimulatedService) Messages() []SimulatedMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	messages := make([]SimulatedMessage, len(svc.messages))
	copy(messages, svc.messages)
	return messages
}

func (svc *SimulatedService) Clear() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.messages = nil
}
