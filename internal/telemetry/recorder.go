package telemetry

import (
	"math"
	"sync"

	"github.com/danmuck/robolink/internal/observability"
	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPIDHistory  = 128
	DefaultFrontOffset = 0.235
)

// Inbound message layouts. Codes and values in the templates are ignored.
var (
	PIDUpdateShape = protocol.Shape{
		Name: "pid_update",
		Template: protocol.Message{
			protocol.CodeElem(codes.PID),
			protocol.F32(0), protocol.F32(0), protocol.F32(0), protocol.F32(0), protocol.F32(0),
		},
	}
	OdometryShape = protocol.Shape{
		Name: "odometry",
		Template: protocol.Message{
			protocol.CodeElem(codes.Odometry),
			protocol.F32(0), protocol.F32(0), protocol.F32(0),
		},
	}
)

// PIDSample is one controller update: error, setpoint and the three terms.
type PIDSample struct {
	Error    float64 `json:"error"`
	Setpoint float64 `json:"setpoint"`
	P        float64 `json:"p"`
	I        float64 `json:"i"`
	D        float64 `json:"d"`
}

// Output is the summed controller output.
func (s PIDSample) Output() float64 {
	return s.P + s.I + s.D
}

// Pose is a planar robot position in metres and radians.
type Pose struct {
	X     float32 `json:"x"`
	Y     float32 `json:"y"`
	Theta float32 `json:"theta"`
}

// Path holds the tracked back (odometry origin) and front points.
type Path struct {
	Back  []Pose `json:"back"`
	Front []Pose `json:"front"`
}

// Counts summarises what the recorder has seen.
type Counts struct {
	PID          uint64 `json:"pid"`
	Odometry     uint64 `json:"odometry"`
	Unrecognised uint64 `json:"unrecognised"`
}

// Recorder classifies inbound messages and keeps telemetry history. Handle is
// called from the poll loop; readers may run on other goroutines.
type Recorder struct {
	mu          sync.RWMutex
	pid         *Ring[PIDSample]
	back        []Pose
	front       []Pose
	frontOffset float32
	counts      Counts
}

func NewRecorder(pidHistory int, frontOffset float32) *Recorder {
	if pidHistory <= 0 {
		pidHistory = DefaultPIDHistory
	}
	return &Recorder{
		pid:         NewRing[PIDSample](pidHistory),
		frontOffset: frontOffset,
	}
}

func (r *Recorder) Handle(msg protocol.Message) {
	shape, ok := protocol.Classify(msg, PIDUpdateShape, OdometryShape)
	if !ok {
		r.mu.Lock()
		r.counts.Unrecognised++
		r.mu.Unlock()
		observability.RecordTelemetry("unrecognised")
		log.Debug().Msgf("telemetry.Recorder.Handle unrecognised msg=%s", msg)
		return
	}
	observability.RecordTelemetry(shape.Name)

	v := msg.Floats()
	switch shape.Name {
	case PIDUpdateShape.Name:
		r.recordPID(PIDSample{
			Error:    float64(v[0]),
			Setpoint: float64(v[1]),
			P:        float64(v[2]),
			I:        float64(v[3]),
			D:        float64(v[4]),
		})
	case OdometryShape.Name:
		r.recordPose(Pose{X: v[0], Y: v[1], Theta: v[2]})
	}
}

func (r *Recorder) recordPID(s PIDSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pid.Push(s)
	r.counts.PID++
}

func (r *Recorder) recordPose(p Pose) {
	front := Pose{
		X:     p.X + r.frontOffset*float32(math.Cos(float64(p.Theta))),
		Y:     p.Y + r.frontOffset*float32(math.Sin(float64(p.Theta))),
		Theta: p.Theta,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.back = append(r.back, p)
	r.front = append(r.front, front)
	r.counts.Odometry++
	log.Debug().Msgf("telemetry.Recorder pose x=%.3f y=%.3f theta=%.3f", p.X, p.Y, p.Theta)
}

// PIDHistory returns the buffered PID samples, oldest first.
func (r *Recorder) PIDHistory() []PIDSample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pid.Snapshot()
}

// SetPIDHistory changes how many PID samples are kept.
func (r *Recorder) SetPIDHistory(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pid.SetCapacity(n)
}

func (r *Recorder) Path() Path {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Path{
		Back:  append([]Pose(nil), r.back...),
		Front: append([]Pose(nil), r.front...),
	}
}

// ErasePath drops the tracked odometry path.
func (r *Recorder) ErasePath() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.back = nil
	r.front = nil
}

func (r *Recorder) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts
}
