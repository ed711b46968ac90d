package buildsys

import (
	"context"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

func invokeStage(ctx context.Context, r recipe.Recipe, stage Stage, plan Plan) error {
	switch stage {
	case StageConfigure:
		return r.Configure(ctx, plan.Settings)
	case StageGenerate:
		return r.Generate(ctx, plan.Options)
	case StageBuild:
		return r.Build(ctx, plan.Options)
	case StagePackage:
		return r.Package(ctx)
	case StagePackageInfo:
		return r.PackageInfo(ctx)
	}

	return eris.Errorf("invalid stage %d", stage)
}

func loadState(ctx context.Context, plan Plan) (*State, error) {
	var state *State
	if plan.StateFile != "" {
		var err error
		state, err = ReadState(plan.StateFile)
		if err != nil {
			return nil, err
		}
	}

	if state != nil && !state.Matches(plan.Recipe, plan.Options, plan.Settings) {
		Log(ctx).Info().
			Str("previous", state.Options.String()).
			Msg("options or settings changed, starting over")
		state = nil
	}

	if state == nil {
		state = &State{
			Recipe:    plan.Recipe,
			RunID:     nanoid.New(),
			Options:   plan.Options,
			Settings:  plan.Settings,
			Completed: map[Stage]bool{},
		}
	}

	return state, nil
}

// Run invokes the planned stages of r in order. It stops at the first failing stage and returns its error
// unchanged. Stages that aren't part of the plan must have completed in an earlier invocation with the same
// options and settings.
func Run(ctx context.Context, r recipe.Recipe, plan Plan) error {
	err := plan.validate()
	if err != nil {
		return err
	}

	state, err := loadState(ctx, plan)
	if err != nil {
		return err
	}

	last := plan.Stages[len(plan.Stages)-1]
	for _, stage := range AllStages() {
		if stage >= last || plan.includes(stage) || plan.DryRun {
			continue
		}

		if !state.Completed[stage] {
			return eris.Errorf("%s has to complete before %s can run", stage, nextPlanned(plan, stage))
		}
	}

	for _, stage := range plan.Stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger := Log(ctx).With().Str("task", stage.String()).Str("run", state.RunID).Logger()
		if plan.DryRun && stage == StageGenerate {
			logger.Info().Msg("skipped (dry run)")
			continue
		}

		start := time.Now()
		logger.Info().Msg("starting")

		err := invokeStage(WithLogger(ctx, &logger), r, stage, plan)
		if err != nil {
			if !plan.DryRun {
				state.invalidateFrom(stage)
				saveState(ctx, plan, state)
			}
			return err
		}

		logger.Info().Dur("took", time.Since(start)).Msg("done")
		if !plan.DryRun {
			state.invalidateFrom(stage)
			state.Completed[stage] = true
			err = saveState(ctx, plan, state)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func nextPlanned(plan Plan, stage Stage) Stage {
	for _, planned := range plan.Stages {
		if planned > stage {
			return planned
		}
	}
	return stage
}

func saveState(ctx context.Context, plan Plan, state *State) error {
	if plan.StateFile == "" {
		return nil
	}

	err := WriteState(plan.StateFile, state)
	if err != nil {
		Log(ctx).Error().Err(err).Msg("failed to save state")
	}
	return err
}
