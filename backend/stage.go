package backend

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
)

// IRStage maps a pipeline stage to the naga IR stage.
func IRStage(stage gputypes.ShaderStage) (ir.ShaderStage, bool) {
	switch stage {
	case gputypes.ShaderStageVertex:
		return ir.StageVertex, true
	case gputypes.ShaderStageFragment:
		return ir.StageFragment, true
	case gputypes.ShaderStageCompute:
		return ir.StageCompute, true
	default:
		return 0, false
	}
}
