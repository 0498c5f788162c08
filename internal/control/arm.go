package control

import (
	"fmt"
	"math"
)

// Two-link arm geometry, centimetres.
const (
	ArmLinkLength     = 8.0
	ArmShoulderHeight = 7.0
)

// Point is a 2D point in the arm plane (reach, height).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ArmPose is the joint chain for one target: shoulder, elbow, wrist.
type ArmPose struct {
	Shoulder Point   `json:"shoulder"`
	Elbow    Point   `json:"elbow"`
	Wrist    Point   `json:"wrist"`
	Upper    float64 `json:"upper_angle"`
	Bend     float64 `json:"bend_angle"`
}

// SolveArm computes the elbow-up inverse kinematics for reach r and height h.
func SolveArm(r, h float64) (ArmPose, error) {
	if r <= 0 {
		return ArmPose{}, fmt.Errorf("%w: reach=%g", ErrUnreachable, r)
	}
	dy := h - ArmShoulderHeight
	twoL2 := 2 * ArmLinkLength * ArmLinkLength
	cosK := (dy*dy + r*r - twoL2) / twoL2
	if cosK < -1 || cosK > 1 {
		return ArmPose{}, fmt.Errorf("%w: reach=%g height=%g", ErrUnreachable, r, h)
	}
	k := math.Acos(cosK)
	l := math.Atan(dy/r) + 0.5*k

	shoulder := Point{X: 0, Y: ArmShoulderHeight}
	elbow := Point{
		X: ArmLinkLength * math.Cos(l),
		Y: ArmLinkLength*math.Sin(l) + ArmShoulderHeight,
	}
	wrist := Point{
		X: ArmLinkLength * (math.Cos(l) + math.Cos(l-k)),
		Y: ArmLinkLength*(math.Sin(l)+math.Sin(l-k)) + ArmShoulderHeight,
	}
	return ArmPose{Shoulder: shoulder, Elbow: elbow, Wrist: wrist, Upper: l, Bend: k}, nil
}
