package battlelog

import (
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/warsim/internal/battle"
)

// ZapSink writes every event as a structured log entry whose message is the
// narrated line.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a ZapSink.
//
// Precondition: logger must be non-nil.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

// Emit logs e. Status events are logged at debug level, the rest at info.
func (s *ZapSink) Emit(e battle.Event) {
	fields := []zap.Field{
		zap.Int("round", e.Round),
		zap.String("kind", string(e.Kind)),
	}
	switch e.Kind {
	case battle.EventFatigue:
		fields = append(fields, zap.Int("percent", e.Percent))
	case battle.EventCritical:
		fields = append(fields,
			zap.Stringer("side", e.Side),
			zap.String("attacker", e.Attacker),
			zap.Int64("power", e.Power),
		)
	case battle.EventAttack:
		fields = append(fields,
			zap.Stringer("side", e.Side),
			zap.String("attacker", e.Attacker),
			zap.String("defender", e.Defender),
			zap.Int64("power", e.Power),
			zap.Int64("damage", e.Damage),
			zap.Bool("critical", e.Critical),
			zap.Bool("unit_lost", e.UnitLost),
			zap.Int64("remaining", e.Remaining),
		)
	case battle.EventStatus:
		if e.Status != nil {
			fields = append(fields,
				zap.Int64("side_a_remaining", e.Status.SideA.TotalRemaining()),
				zap.Int64("side_b_remaining", e.Status.SideB.TotalRemaining()),
			)
		}
		s.logger.Debug(Narrate(e), fields...)
		return
	case battle.EventOutcome:
		if e.Outcome != nil {
			fields = append(fields,
				zap.Stringer("winner", e.Outcome.Winner),
				zap.String("reason", string(e.Outcome.Reason)),
				zap.Int64("side_a_total", e.Outcome.SideATotal),
				zap.Int64("side_b_total", e.Outcome.SideBTotal),
			)
		}
	}
	s.logger.Info(Narrate(e), fields...)
}

// Rotation configures the narration file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileLogger returns a logger writing JSON lines to a rotating file at path,
// and the file writer so the caller can close it.
//
// Precondition: path must be non-empty.
// Postcondition: Returns a debug-level logger and its lumberjack writer.
func NewFileLogger(path string, rot Rotation) (*zap.Logger, *lumberjack.Logger) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    max(1, rot.MaxSizeMB),
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   rot.Compress,
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core), w
}

// Recorder keeps every event it receives in memory.
// Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []battle.Event
}

// Emit appends e.
func (r *Recorder) Emit(e battle.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []battle.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]battle.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type multiSink []battle.Sink

func (m multiSink) Emit(e battle.Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans each event out to sinks in order. Nil sinks are skipped.
func Multi(sinks ...battle.Sink) battle.Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
