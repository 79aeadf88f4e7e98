package smoothmesh

import "gonum.org/v1/gonum/spatial/r3"

// ApplyOffset pushes every vertex with positive weight along its normal by
// distance*weight, in place. normals are those of the mesh before smoothing.
// It does nothing when distance is zero, whatever the other arguments.
func ApplyOffset(positions, normals []r3.Vec, weights []float64, distance float64) error {
	if distance == 0 {
		return nil
	}
	if !isFinite(distance) {
		return &InvalidParameterError{Param: "Offset", Value: distance, Reason: "must be finite"}
	}
	if err := checkLen("Normals", len(normals), len(positions)); err != nil {
		return err
	}
	if err := checkLen("Weights", len(weights), len(positions)); err != nil {
		return err
	}
	for i, w := range weights {
		if w > 0 {
			positions[i] = r3.Add(positions[i], r3.Scale(distance*w, normals[i]))
		}
	}
	return nil
}
