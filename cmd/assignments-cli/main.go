package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/meeting-assignments-api/internal/dataset"
	"github.com/noah-isme/meeting-assignments-api/internal/engine"
	"github.com/noah-isme/meeting-assignments-api/internal/models"
	"github.com/noah-isme/meeting-assignments-api/internal/policy"
	"github.com/noah-isme/meeting-assignments-api/internal/service"
	"github.com/noah-isme/meeting-assignments-api/pkg/config"
	"github.com/noah-isme/meeting-assignments-api/pkg/logger"
)

type options struct {
	datasetPath   string
	week          string
	exclude       string
	noFamilyBonus bool
	validate      bool
	check         bool
	issueRole     string
	issueUser     string
	issueName     string
}

type generateOutput struct {
	WeekOf     string         `json:"weekOf"`
	Result     *engine.Result `json:"result"`
	Validation *policy.Result `json:"validation,omitempty"`
}

type checkOutput struct {
	WeekOf     string         `json:"weekOf"`
	Validation *policy.Result `json:"validation"`
}

type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var errUnsuccessful = errors.New("run finished with unassigned parts or policy errors")

func main() {
	var (
		opts     options
		logLevel string
	)

	flag.StringVar(&opts.datasetPath, "dataset", "", "Path to the YAML dataset")
	flag.StringVar(&opts.week, "week", "", "Week to schedule (YYYY-MM-DD), defaults to the dataset week")
	flag.StringVar(&opts.exclude, "exclude", "", "Comma separated member ids to leave out")
	flag.BoolVar(&opts.noFamilyBonus, "no-family-bonus", false, "Disable the family assistant scoring bonus")
	flag.BoolVar(&opts.validate, "validate", true, "Validate generated assignments")
	flag.BoolVar(&opts.check, "check", false, "Validate the dataset assignments instead of generating")
	flag.StringVar(&opts.issueRole, "issue-token", "", "Issue an API token for the given role and exit")
	flag.StringVar(&opts.issueUser, "user", "cli", "User id placed in issued tokens")
	flag.StringVar(&opts.issueName, "name", "", "Full name placed in issued tokens")
	flag.StringVar(&logLevel, "log-level", "info", "Log level")
	flag.Parse()

	logr, err := logger.NewCLI(logLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if opts.issueRole != "" {
		cfg, err := config.Load()
		if err != nil {
			logr.Fatal("failed to load config", zap.Error(err))
		}
		if err := issueToken(os.Stdout, cfg.JWT, opts); err != nil {
			logr.Fatal("failed to issue token", zap.Error(err))
		}
		return
	}

	if err := run(os.Stdout, opts, logr); err != nil {
		if errors.Is(err, errUnsuccessful) {
			logr.Warn("assignments incomplete")
			os.Exit(1)
		}
		logr.Fatal("run failed", zap.Error(err))
	}
}

func run(out io.Writer, opts options, logr *zap.Logger) error {
	if opts.datasetPath == "" {
		return errors.New("-dataset is required")
	}
	ds, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return err
	}

	rawWeek := opts.week
	if rawWeek == "" {
		rawWeek = ds.Week
	}
	if rawWeek == "" {
		return errors.New("no week given and the dataset has none")
	}
	week, err := models.ParseWeek(rawWeek)
	if err != nil {
		return fmt.Errorf("invalid week %q: %w", rawWeek, err)
	}

	if opts.check {
		validation := policy.ValidateAssignments(ds.Placements(week), ds.PolicyContext(week))
		logr.Info("validation finished",
			zap.Int("errors", len(validation.Errors)),
			zap.Int("warnings", len(validation.Warnings)),
			zap.Int("score", validation.Score),
		)
		if err := writeJSON(out, checkOutput{WeekOf: rawWeek, Validation: validation}); err != nil {
			return err
		}
		if !validation.IsValid {
			return errUnsuccessful
		}
		return nil
	}

	engineOpts := engine.Options{
		WeekOf:             week,
		ExcludedStudentIDs: splitIDs(opts.exclude),
		IgnoreFamilyBonus:  opts.noFamilyBonus,
	}
	result := engine.GenerateAssignments(ds.EngineInput(week), engineOpts, ds.ProgramParts(week), logr)
	output := generateOutput{WeekOf: week.Format(models.WeekLayout), Result: result}
	if opts.validate {
		output.Validation = policy.ValidateAssignments(result.Assignments, ds.PolicyContext(week))
	}
	logr.Info("generation finished",
		zap.Bool("success", result.Success),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("warnings", len(result.Warnings)),
	)
	if err := writeJSON(out, output); err != nil {
		return err
	}
	if !result.Success || (output.Validation != nil && !output.Validation.IsValid) {
		return errUnsuccessful
	}
	return nil
}

func issueToken(out io.Writer, cfg config.JWTConfig, opts options) error {
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.Secret,
		Issuer:   cfg.Issuer,
		Validity: cfg.Expiration,
	})
	role := models.UserRole(strings.ToUpper(opts.issueRole))
	token, expiresAt, err := tokens.IssueToken(opts.issueUser, opts.issueName, role)
	if err != nil {
		return err
	}
	return writeJSON(out, tokenOutput{Token: token, ExpiresAt: expiresAt})
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
