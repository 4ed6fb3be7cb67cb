package domain

// AnchorState is the provider-side state of an in-flight operation.
type AnchorState string

const (
	AnchorPending AnchorState = "Pending"
	AnchorSuccess AnchorState = "Success"
	AnchorFailure AnchorState = "Failure"
)

func (s AnchorState) String() string {
	return string(s)
}

// Vector3 is a position in world space (meters).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation in world space.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityRotation is the quaternion with no rotation.
var IdentityRotation = Quaternion{W: 1}

// Pose is a world-space position and orientation resolved from a screen touch.
type Pose struct {
	Position Vector3    `json:"position"`
	Rotation Quaternion `json:"rotation"`
}

// TouchInput is the per-cycle touch sample supplied by the host loop.
// Raycasting is done by the host: Pose is nil when the touch hit nothing.
type TouchInput struct {
	Began  bool  `json:"began"`
	OverUI bool  `json:"over_ui"`
	Pose   *Pose `json:"pose,omitempty"`
}

// Fresh reports whether the touch began this cycle and was not intercepted by UI.
func (t *TouchInput) Fresh() bool {
	return t != nil && t.Began && !t.OverUI
}

// HasPose reports whether the touch is fresh and resolved to a world pose.
func (t *TouchInput) HasPose() bool {
	return t.Fresh() && t.Pose != nil
}
