// Package control builds the outbound command messages understood by the
// controller firmware.
package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
)

var (
	ErrUnknownTarget = errors.New("control: unknown pid target")
	ErrUnreachable   = errors.New("control: arm target unreachable")
)

// PIDTarget selects which controller loop a gain update applies to.
type PIDTarget string

const (
	TargetEncoderMotor PIDTarget = "encoder_motor"
	TargetDriveBase    PIDTarget = "drive_base"
	TargetShoulder     PIDTarget = "shoulder"
)

func (t PIDTarget) Code() (codes.Code, error) {
	switch PIDTarget(strings.ToLower(strings.TrimSpace(string(t)))) {
	case TargetEncoderMotor:
		return codes.EncoderMotor, nil
	case TargetDriveBase:
		return codes.DriveBase, nil
	case TargetShoulder:
		return codes.Shoulder, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, string(t))
	}
}

// PIDGains are the tunables sent with a PID SET.
type PIDGains struct {
	Kp                 float32 `json:"kp"`
	Ki                 float32 `json:"ki"`
	Kd                 float32 `json:"kd"`
	MaxCumulativeError float32 `json:"max_cumulative_error"`
}

// SetPID builds [PID, SET, target, kp, ki, kd, max_ce].
func SetPID(target PIDTarget, g PIDGains) (protocol.Message, error) {
	c, err := target.Code()
	if err != nil {
		return nil, err
	}
	return protocol.Message{
		protocol.CodeElem(codes.PID),
		protocol.CodeElem(codes.Set),
		protocol.CodeElem(c),
		protocol.F32(g.Kp),
		protocol.F32(g.Ki),
		protocol.F32(g.Kd),
		protocol.F32(g.MaxCumulativeError),
	}, nil
}

// SetDriveBase builds [DRIVE_BASE, SET, speed, U32(tape_following)].
func SetDriveBase(baseSpeed float32, tapeFollowing bool) protocol.Message {
	var tape uint32
	if tapeFollowing {
		tape = 1
	}
	return protocol.Message{
		protocol.CodeElem(codes.DriveBase),
		protocol.CodeElem(codes.Set),
		protocol.F32(baseSpeed),
		protocol.U32(tape),
	}
}

// SetArm builds [ARM, SET, r, h] for a reach/height target in centimetres.
func SetArm(r, h float32) protocol.Message {
	return protocol.Message{
		protocol.CodeElem(codes.Arm),
		protocol.CodeElem(codes.Set),
		protocol.F32(r),
		protocol.F32(h),
	}
}

// RotateTurntable builds [TTBL, SET, delta*sensitivity].
func RotateTurntable(delta, sensitivity float32) protocol.Message {
	return protocol.Message{
		protocol.CodeElem(codes.Turntable),
		protocol.CodeElem(codes.Set),
		protocol.F32(delta * sensitivity),
	}
}
