package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/invite"
	"github.com/orcidhub/orcidhub/internal/schema"
	"github.com/orcidhub/orcidhub/internal/store"
)

// execute runs the root command with args, resetting the flag variables
// cobra leaves behind between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	sectionsFormat = "table"
	configInitForce = false
	configInitLocal = false
	cfgFile = ""
	serveAddr = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

// writeTestConfig points the database at a temp dir and returns the
// config and database paths.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "hub.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`database:
  path: %s
  watch_changes: false
organisation:
  name: Test University
  client_id: APP-TESTCLIENT0001
`, dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, dbPath
}

// ============================================================================
// import
// ============================================================================

const seedYAML = `users:
  - id: u1
    name: Josiah Carberry
    email: jc@example.org
    orcid: 0000-0002-1825-0097
    sections:
      EDU:
        - fields: {org_name: Brown University, city: Providence, country: US, role: PhD}
      FUN:
        - fields: {org_name: NSF, city: Alexandria, country: US, funding_title: Psychoceramics, funding_type: GRANT}
          external_ids:
            - {type: grant_number, value: G-1, relationship: SELF}
      KWR:
        - fields: {content: ceramics}
          source: {client_id: APP-ELSEWHERE00001, name: Elsewhere}
`

func TestImport_SeedsUsersAndRecords(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(seedYAML), 0o600))

	out, err := execute(t, "--config", cfgPath, "import", seed)
	require.NoError(t, err)
	require.Contains(t, out, "Imported 1 users and 3 records")

	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	user, err := db.Users().FindUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Josiah Carberry", user.Name)

	reg := schema.MustDefault()
	records := db.Records(reg, store.Source{ClientID: "APP-TESTCLIENT0001", Name: "Test University"})

	edu, err := records.FetchRecords(ctx, "u1", schema.Education)
	require.NoError(t, err)
	require.Len(t, edu, 1)
	require.Equal(t, "Brown University", edu[0].String([]string{"organization", "name"}, ""))

	fun, err := records.FetchRecords(ctx, "u1", schema.Funding)
	require.NoError(t, err)
	require.Len(t, fun, 1)
	desc, err := reg.Describe(schema.Funding)
	require.NoError(t, err)
	raw, ok := fun[0].Lookup(desc.ExternalIDsPath)
	require.True(t, ok, "funding record should carry external ids")
	ids, err := extid.FromORCID(raw)
	require.NoError(t, err)
	require.Equal(t, []extid.Entry{{Type: "grant_number", Value: "G-1", Relationship: "SELF"}}, ids.NonBlank())

	kwr, err := records.FetchRecords(ctx, "u1", schema.Keyword)
	require.NoError(t, err)
	require.Len(t, kwr, 1)
	kd, err := reg.Describe(schema.Keyword)
	require.NoError(t, err)
	require.Equal(t, "APP-ELSEWHERE00001", kwr[0].String(kd.SourcePath, ""))
}

func TestImport_UnknownSection(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`users:
  - id: u1
    name: Somebody
    sections:
      XYZ:
        - fields: {content: nope}
`), 0o600))

	_, err := execute(t, "--config", cfgPath, "import", seed)
	require.ErrorIs(t, err, schema.ErrUnknownDiscriminator)
}

func TestImport_InvalidORCID(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`users:
  - id: u1
    orcid: 0000-0002-1825-0098
`), 0o600))

	_, err := execute(t, "--config", cfgPath, "import", seed)
	require.ErrorIs(t, err, store.ErrInvalidORCID)
}

func TestImport_MissingFile(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := execute(t, "--config", cfgPath, "import", filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "reading")
}

// ============================================================================
// sections
// ============================================================================

func TestSections_ListsEverySection(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "sections")
	require.NoError(t, err)
	for _, d := range schema.MustDefault().All() {
		require.Contains(t, out, d.Discriminator.String())
		require.Contains(t, out, d.Title)
	}
}

func TestSections_DescribeJSON(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "sections", "FUN", "--format", "json")
	require.NoError(t, err)

	var info sectionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, "FUN", info.Code)
	require.False(t, info.SourceBearing)
	require.NotEmpty(t, info.ExternalIDs)
	require.NotEmpty(t, info.Columns)

	names := make([]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "funding_title")
	require.NotContains(t, names, "department")
}

func TestSections_DescribeTable(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "sections", "kwr")
	require.NoError(t, err)
	require.Contains(t, out, "Keywords")
	require.Contains(t, out, "source:")
}

func TestSections_UnknownCode(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := execute(t, "--config", cfgPath, "sections", "XYZ")
	require.ErrorIs(t, err, schema.ErrUnknownDiscriminator)
}

func TestSections_UnknownFormat(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	_, err := execute(t, "--config", cfgPath, "sections", "--format", "xml")
	require.ErrorContains(t, err, `unknown format "xml"`)
}

// ============================================================================
// invites
// ============================================================================

func TestInvites_ListAndAccept(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(seedYAML), 0o600))
	_, err := execute(t, "--config", cfgPath, "import", seed)
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "invites", "list", "u1")
	require.NoError(t, err)
	require.Contains(t, out, "No pending invitations.")

	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	inv, err := invite.NewDispatcher(db).SendUpdatePermissionInvite(context.Background(), "u1", "APP-TESTCLIENT0001")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err = execute(t, "--config", cfgPath, "invites", "list", "u1")
	require.NoError(t, err)
	require.Contains(t, out, inv.Token)
	require.Contains(t, out, "jc@example.org")

	out, err = execute(t, "--config", cfgPath, "invites", "accept", inv.Token)
	require.NoError(t, err)
	require.Contains(t, out, "Accepted "+inv.Token)

	_, err = execute(t, "--config", cfgPath, "invites", "accept", inv.Token)
	require.Error(t, err, "a token is accepted once")

	out, err = execute(t, "--config", cfgPath, "invites", "list", "u1")
	require.NoError(t, err)
	require.Contains(t, out, "No pending invitations.")
}

// ============================================================================
// config init
// ============================================================================

func TestConfigInit_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "send-invite: true")

	_, err = execute(t, "config", "init", path)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigInit_WrittenFileLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := execute(t, "config", "init", path)
	require.NoError(t, err)

	_, err = execute(t, "--config", path, "sections")
	require.NoError(t, err)
	require.Equal(t, "localhost:8000", cfg.Server.Addr)
	require.True(t, cfg.Flags["send-invite"])
}
