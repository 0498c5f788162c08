package control

import (
	"errors"
	"math"
	"testing"

	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/danmuck/robolink/internal/testutil/testlog"
)

func TestSetPIDLayout(t *testing.T) {
	testlog.Start(t)
	msg, err := SetPID(TargetShoulder, PIDGains{Kp: 1, Ki: 0.5, Kd: 0.25, MaxCumulativeError: 10})
	if err != nil {
		t.Fatalf("set pid: %v", err)
	}
	want := protocol.Message{
		protocol.CodeElem(codes.PID),
		protocol.CodeElem(codes.Set),
		protocol.CodeElem(codes.Shoulder),
		protocol.F32(1), protocol.F32(0.5), protocol.F32(0.25), protocol.F32(10),
	}
	if !msg.Equal(want) {
		t.Fatalf("got=%v want=%v", msg, want)
	}
	if _, err := protocol.Encode(codes.Default(), msg); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestPIDTargetCodes(t *testing.T) {
	testlog.Start(t)
	cases := map[PIDTarget]codes.Code{
		TargetEncoderMotor: codes.EncoderMotor,
		"Drive_Base":       codes.DriveBase,
		" shoulder ":       codes.Shoulder,
	}
	for target, want := range cases {
		got, err := target.Code()
		if err != nil || got != want {
			t.Fatalf("%q: got=%s err=%v want=%s", target, got, err, want)
		}
	}
	if _, err := PIDTarget("wrist").Code(); !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
}

func TestDriveBaseTapeFlag(t *testing.T) {
	testlog.Start(t)
	on := SetDriveBase(0.4, true)
	if v, ok := on[3].Uint32(); !ok || v != 1 {
		t.Fatalf("tape flag: got=%v ok=%v", v, ok)
	}
	off := SetDriveBase(0.4, false)
	if v, _ := off[3].Uint32(); v != 0 {
		t.Fatalf("tape flag off: got=%v", v)
	}
}

func TestTurntableScales(t *testing.T) {
	testlog.Start(t)
	msg := RotateTurntable(2, 1.5)
	if v, ok := msg[2].Float32(); !ok || v != 3 {
		t.Fatalf("got=%v ok=%v", v, ok)
	}
}

func TestSolveArmReachesTarget(t *testing.T) {
	testlog.Start(t)
	for _, tc := range []struct{ r, h float64 }{{10, 10}, {12, 4}, {5, 12}} {
		pose, err := SolveArm(tc.r, tc.h)
		if err != nil {
			t.Fatalf("solve %v: %v", tc, err)
		}
		if math.Abs(pose.Wrist.X-tc.r) > 1e-9 || math.Abs(pose.Wrist.Y-tc.h) > 1e-9 {
			t.Fatalf("wrist %+v does not reach %v", pose.Wrist, tc)
		}
		upper := math.Hypot(pose.Elbow.X-pose.Shoulder.X, pose.Elbow.Y-pose.Shoulder.Y)
		if math.Abs(upper-ArmLinkLength) > 1e-9 {
			t.Fatalf("upper link length %v", upper)
		}
	}
}

func TestSolveArmUnreachable(t *testing.T) {
	testlog.Start(t)
	if _, err := SolveArm(20, 7); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if _, err := SolveArm(0, 7); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable for zero reach, got %v", err)
	}
}
