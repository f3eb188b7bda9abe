package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

type fakeBackend struct {
	outcomes map[string]entities.ImportOutcome
	errs     map[string]error
	resolved []entities.ResolutionAction
}

func (f *fakeBackend) Import(_ context.Context, dn string) (entities.ImportOutcome, error) {
	if err := f.errs[dn]; err != nil {
		return entities.ImportOutcome{}, err
	}
	if o, ok := f.outcomes[dn]; ok {
		return o, nil
	}
	return entities.SuccessOutcome("Contact imported successfully"), nil
}

func (f *fakeBackend) ResolveConflict(_ context.Context, _ uint, action entities.ResolutionAction, _ string) error {
	f.resolved = append(f.resolved, action)
	return nil
}

type fixedChooser struct {
	action entities.ResolutionAction
	err    error
}

func (c fixedChooser) Choose(context.Context, importer.Conflict) (entities.ResolutionAction, error) {
	return c.action, c.err
}

func TestLDAPImportParseFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Import.ServerURL = "http://localhost:8188/"
	cfg.Auth.APIToken = "from-env"

	cmd := NewLDAPImportCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-search", "smith", "-exclude-alumni"}))
	assert.Equal(t, "http://localhost:8188", cmd.ServerURL)
	assert.Equal(t, "from-env", cmd.Token)
	assert.Equal(t, importer.DefaultRequestTimeout, cmd.Timeout)
	assert.True(t, cmd.ExcludeAlumni)
	assert.False(t, cmd.ExcludeStudents)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing to do", nil, "one of -search or -dn"},
		{"both modes", []string{"-search", "a", "-dn", "uid=a"}, "cannot be combined"},
		{"bad timeout", []string{"-dn", "uid=a", "-timeout", "0s"}, "-timeout"},
		{"bad server", []string{"-dn", "uid=a", "-server", "ftp://x"}, "invalid server URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLDAPImportCommand(cfg).ParseFlags(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImportSingleResolvesConflict(t *testing.T) {
	var out bytes.Buffer
	backend := &fakeBackend{outcomes: map[string]entities.ImportOutcome{
		"uid=jdoe": entities.ConflictOutcome(7, "jdoe", "conflict"),
	}}
	cmd := &LDAPImportCommand{DN: "uid=jdoe", out: &out}

	require.NoError(t, cmd.importSingle(context.Background(), backend, fixedChooser{action: entities.ResolutionMergeLink}))
	assert.Equal(t, []entities.ResolutionAction{entities.ResolutionMergeLink}, backend.resolved)
	assert.Contains(t, out.String(), "contact #7 resolved")
}

func TestImportSingleCancelledLeavesConflict(t *testing.T) {
	var out bytes.Buffer
	backend := &fakeBackend{outcomes: map[string]entities.ImportOutcome{
		"uid=jdoe": entities.ConflictOutcome(7, "jdoe", "conflict"),
	}}
	cmd := &LDAPImportCommand{DN: "uid=jdoe", out: &out}

	err := cmd.importSingle(context.Background(), backend, fixedChooser{err: importer.ErrResolutionCancelled})
	require.NoError(t, err)
	assert.Empty(t, backend.resolved)
	assert.Contains(t, out.String(), "left unresolved")
}

func TestImportSingleError(t *testing.T) {
	backend := &fakeBackend{errs: map[string]error{"uid=x": importer.Rejected("Contact not found in LDAP")}}
	cmd := &LDAPImportCommand{DN: "uid=x", out: &bytes.Buffer{}}

	err := cmd.importSingle(context.Background(), backend, fixedChooser{})
	require.Error(t, err)
	assert.True(t, importer.IsRejected(err))
}

func TestImportBatchReportsConflicts(t *testing.T) {
	var out bytes.Buffer
	backend := &fakeBackend{
		outcomes: map[string]entities.ImportOutcome{"uid=b": entities.ConflictOutcome(2, "b", "conflict")},
		errs:     map[string]error{"uid=c": errors.New("connection refused")},
	}
	cmd := &LDAPImportCommand{Timeout: time.Second, out: &out}

	result := cmd.importBatch(context.Background(), backend, []entities.ImportCandidate{
		{DN: "uid=a", Name: "Ann", UID: "a"},
		{DN: "uid=b", Name: "Bob", UID: "b"},
		{DN: "uid=c", Name: "Cy", UID: "c"},
	})

	assert.Equal(t, 1, result.Summary.Success)
	assert.Equal(t, 1, result.Summary.Conflicts)
	assert.Equal(t, 1, result.Summary.Errors)
	assert.Equal(t, 3, result.Summary.Completed)
	assert.Empty(t, backend.resolved)

	text := out.String()
	assert.Contains(t, text, "[3/3 100%]")
	assert.Contains(t, text, "1 conflicts were left unresolved")
	assert.Contains(t, text, "Bob (b) -> contact #2")
}

func TestCandidateHelpers(t *testing.T) {
	candidates := []entities.ImportCandidate{
		{DN: "uid=a", Name: "Ann", UID: "a"},
		{DN: "uid=b"},
		{DN: "uid=c", Name: "Cy", UID: "c"},
	}

	assert.Equal(t, "Ann (a)", candidateLabel(candidates[0]))
	assert.Equal(t, "uid=b", candidateLabel(candidates[1]))

	picked := selectedCandidates(candidates, []int{2, 0})
	require.Len(t, picked, 2)
	assert.Equal(t, "uid=a", picked[0].DN)
	assert.Equal(t, "uid=c", picked[1].DN)

	assert.Len(t, candidateOptions(candidates), 3)
	assert.Len(t, actionOptions(entities.ResolutionActions), 3)
}

func TestChooserFlavour(t *testing.T) {
	assert.IsType(t, importer.SelectChooser{}, chooser(true))
	assert.IsType(t, importer.NestedConfirmChooser{}, chooser(false))
}

func TestInitDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "phonedir.db")
	var out bytes.Buffer

	cmd := NewInitDBCommand()
	cmd.out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-db", path}))
	require.NoError(t, cmd.Run())
	assert.True(t, strings.HasPrefix(out.String(), "Database initialized"))

	db, err := database.NewDatabase(path, nil)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.DB.Model(&entities.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(len(database.DefaultSettings)), count)
	require.NoError(t, db.Close())

	out.Reset()
	cmd.Reset = true
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Database reset")
}
