package replay

import (
	"encoding/hex"

	"opticsight/internal/aim"
	"opticsight/internal/ballistics"
	"opticsight/internal/orientation"
	"opticsight/internal/rangefinder"
	"opticsight/internal/screen"
)

func hexString(cm int16) string {
	return hex.EncodeToString(rangefinder.EncodeFrame(rangefinder.Frame{DistanceCM: cm}))
}

func newCycle() *aim.Cycle {
	return aim.NewCycle(
		orientation.NewEstimator(orientation.Config{}),
		aim.NewSolver(ballistics.DefaultProfile(), screen.DefaultGeometry()),
	)
}
