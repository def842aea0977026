package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seedYAML = `
appointments:
  - patientName: Jane Doe
    doctorName: Dr. Smith
    startTime: 2099-03-16T10:00:00Z
    endTime: 2099-03-16T10:30:00Z
  - patientName: John Roe
    doctorName: Dr. Smith
    startTime: 2099-03-16T10:15:00Z
    endTime: 2099-03-16T10:45:00Z
  - patientName: ""
    doctorName: Dr. Jones
    startTime: 2099-03-16T11:00:00Z
    endTime: 2099-03-16T11:30:00Z
`

func TestVersionCmd(t *testing.T) {
	Version, CommitSHA, BuildDate = "1.4.0", "abc123", "2030-01-01"
	t.Cleanup(func() { Version, CommitSHA, BuildDate = "dev", "none", "unknown" })

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "apptsched 1.4.0 (commit=abc123, built=2030-01-01)\n", out.String())
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"version", "serve", "migrate", "seed"}, names)
}

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, seed.Appointments, 3)
	assert.Equal(t, "Dr. Smith", seed.Appointments[0].DoctorName)
	assert.True(t, seed.Appointments[0].StartTime.Equal(time.Date(2099, 3, 16, 10, 0, 0, 0, time.UTC)))

	_, err = ParseSeed([]byte("appointments:\n  - doctor: Dr. Smith\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")

	empty, err := ParseSeed(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Appointments)
}

func TestLoadSeedFile_Missing(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read seed file")
}

func TestRunSeed_CountsOutcomes(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)

	now := time.Date(2099, 3, 15, 9, 0, 0, 0, time.UTC)
	repo := memory.NewAppointmentRepository(zap.NewNop())
	svc := service.NewAppointmentService(repo, appointment.ClockFunc(func() time.Time { return now }), nil, nil, zap.NewNop())

	var out bytes.Buffer
	report, err := runSeed(context.Background(), svc, seed, &out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Created: 1, Conflicts: 1, Invalid: 1}, report)
	assert.Contains(t, out.String(), "#1 created id=1 Dr. Smith")
	assert.Contains(t, out.String(), "#2 skipped")

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

type brokenCreator struct{ calls int }

func (b *brokenCreator) Create(context.Context, *appointment.CreateAppointmentCommand) (*appointment.Appointment, error) {
	b.calls++
	return nil, &appointment.StoreError{Op: "create", Err: errors.New("disk full")}
}

func TestRunSeed_StoreErrorAborts(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	require.NoError(t, err)

	c := &brokenCreator{}
	_, err = runSeed(context.Background(), c, seed, &bytes.Buffer{}, zap.NewNop())

	var serr *appointment.StoreError
	assert.ErrorAs(t, err, &serr)
	assert.ErrorContains(t, err, "seeding entry 1")
	assert.Equal(t, 1, c.calls)
}

func TestBuildApp_BoltPersistsAcrossRuns(t *testing.T) {
	cfg := &config.Config{
		Storage:    config.StorageConfig{Driver: config.StorageBolt, BoltPath: filepath.Join(t.TempDir(), "appts.db")},
		Scheduling: config.SchedulingConfig{Timezone: "UTC"},
		Events:     config.EventsConfig{BufferSize: 16},
	}
	ctx := context.Background()
	start := time.Now().Add(48 * time.Hour).Truncate(time.Second).UTC()

	a, err := buildApp(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	created, err := a.Appointments.Create(ctx, &appointment.CreateAppointmentCommand{
		PatientName: "Jane Doe",
		DoctorName:  "Dr. Smith",
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := buildApp(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	got, err := b.Appointments.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.PatientName)
	assert.Equal(t, appointment.StatusUpcoming, got.Status)
	assert.Nil(t, b.Health)
}

func TestBuildApp_UnknownDriver(t *testing.T) {
	_, err := buildApp(&config.Config{Storage: config.StorageConfig{Driver: "mongo"}}, nil, zap.NewNop())
	assert.ErrorContains(t, err, `unknown storage driver "mongo"`)
}

func TestSeedCmd_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(file, []byte(seedYAML), 0o600))

	t.Setenv("STORAGE_DRIVER", "bolt")
	t.Setenv("BOLT_PATH", filepath.Join(dir, "appts.db"))
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"seed", file})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "created=1 conflicts=1 invalid=1")

	strict := NewRootCmd()
	strict.SetOut(&bytes.Buffer{})
	strict.SetArgs([]string{"seed", "--strict", file})
	err := strict.Execute()
	assert.ErrorContains(t, err, "3 of 3 appointments rejected")
}

func TestMetricsNamespace(t *testing.T) {
	assert.Equal(t, "apptsched", metricsNamespace("apptsched"))
	assert.Equal(t, "apptsched_api", metricsNamespace("apptsched-api"))
	assert.Equal(t, "_9lives", metricsNamespace("9lives"))
}
