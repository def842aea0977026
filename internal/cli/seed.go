package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by the seed command.
type SeedFile struct {
	Appointments []SeedAppointment `yaml:"appointments"`
}

type SeedAppointment struct {
	PatientName string    `yaml:"patientName"`
	DoctorName  string    `yaml:"doctorName"`
	StartTime   time.Time `yaml:"startTime"`
	EndTime     time.Time `yaml:"endTime"`
}

// SeedReport counts what happened to each entry of a seed file.
type SeedReport struct {
	Created   int
	Conflicts int
	Invalid   int
}

type appointmentCreator interface {
	Create(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error)
}

func newSeedCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load appointments from a YAML file through the scheduling rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := LoadSeedFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log, cfg.App)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Storage.Driver == config.StorageMemory {
				log.Warn("seeding the in-memory store; data is discarded when the command exits")
			}

			a, err := buildApp(cfg, metrics.NewCollector(metricsNamespace(cfg.App.Name), prometheus.NewRegistry()), log)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			report, err := runSeed(cmd.Context(), a.Appointments, seed, cmd.OutOrStdout(), log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created=%d conflicts=%d invalid=%d\n",
				report.Created, report.Conflicts, report.Invalid)

			if strict && report.Conflicts+report.Invalid > 0 {
				return fmt.Errorf("%d of %d appointments rejected",
					report.Conflicts+report.Invalid, len(seed.Appointments))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any appointment is rejected")
	return cmd
}

func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &seed, nil
}

// runSeed creates every entry in file order. Rejected entries are reported
// and skipped; any other failure stops the run.
func runSeed(ctx context.Context, svc appointmentCreator, seed *SeedFile, out io.Writer, log *zap.Logger) (SeedReport, error) {
	var report SeedReport
	for i, s := range seed.Appointments {
		created, err := svc.Create(ctx, &appointment.CreateAppointmentCommand{
			PatientName: s.PatientName,
			DoctorName:  s.DoctorName,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		})

		var verr *appointment.ValidationError
		switch {
		case err == nil:
			report.Created++
			fmt.Fprintf(out, "#%d created id=%d %s %s\n", i+1, created.ID, created.DoctorName,
				created.StartTime.Format(time.RFC3339))
		case errors.Is(err, appointment.ErrAppointmentConflict):
			report.Conflicts++
			fmt.Fprintf(out, "#%d skipped: %v\n", i+1, err)
		case errors.As(err, &verr):
			report.Invalid++
			fmt.Fprintf(out, "#%d skipped: %v\n", i+1, err)
		default:
			log.Error("seed aborted", zap.Int("entry", i+1), zap.Error(err))
			return report, fmt.Errorf("seeding entry %d: %w", i+1, err)
		}
	}
	return report, nil
}
