package buildsys

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

// Stage is one lifecycle hook. Stages always run in ascending order.
type Stage int

const (
	StageConfigure Stage = iota
	StageGenerate
	StageBuild
	StagePackage
	StagePackageInfo
)

var stageNames = [...]string{"configure", "generate", "build", "package", "package_info"}

// AllStages returns every stage in execution order.
func AllStages() []Stage {
	return []Stage{StageConfigure, StageGenerate, StageBuild, StagePackage, StagePackageInfo}
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// ParseStage accepts stage names with dashes or underscores.
func ParseStage(name string) (Stage, error) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for idx, stageName := range stageNames {
		if stageName == name {
			return Stage(idx), nil
		}
	}
	return 0, eris.Errorf("unknown stage %s", name)
}

// Plan describes one orchestrator invocation.
type Plan struct {
	Recipe   string
	Stages   []Stage
	Settings recipe.Settings
	Options  recipe.OptionValues

	// StateFile persists progress between invocations. Leave empty to run without state.
	StateFile string

	// DryRun skips the generate stage and leaves the state file alone. The recipe's build tool is expected to
	// be in dry-run mode as well.
	DryRun bool
}

func (p Plan) validate() error {
	if len(p.Stages) == 0 {
		return eris.New("no stages to run")
	}

	for idx, stage := range p.Stages {
		if stage < StageConfigure || stage > StagePackageInfo {
			return eris.Errorf("invalid stage %d", stage)
		}

		if idx > 0 && stage <= p.Stages[idx-1] {
			return eris.Errorf("stage %s is out of order", stage)
		}
	}

	return nil
}

func (p Plan) includes(stage Stage) bool {
	for _, item := range p.Stages {
		if item == stage {
			return true
		}
	}
	return false
}
