package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orcidhub/orcidhub/internal/extid"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/store"
)

// importFile is the seed document read by "orcidhub import".
//
//	users:
//	  - id: u1
//	    name: Josiah Carberry
//	    orcid: 0000-0002-1825-0097
//	    sections:
//	      EDU:
//	        - fields: {org_name: Brown University, city: Providence, country: US}
//	      FUN:
//	        - fields: {org_name: NSF, city: Alexandria, country: US, funding_title: Psychoceramics, funding_type: GRANT}
//	          external_ids:
//	            - {type: grant_number, value: G-1, relationship: SELF}
type importFile struct {
	Users []importUser `yaml:"users"`
}

type importUser struct {
	ID       string                    `yaml:"id"`
	Name     string                    `yaml:"name"`
	Email    string                    `yaml:"email"`
	ORCID    string                    `yaml:"orcid"`
	Sections map[string][]importRecord `yaml:"sections"`
}

type importRecord struct {
	Fields      map[string]string `yaml:"fields"`
	ExternalIDs []extid.Entry     `yaml:"external_ids"`
	// Source overrides the organisation the record is attributed to.
	Source *importSource `yaml:"source"`
}

type importSource struct {
	ClientID string `yaml:"client_id"`
	Name     string `yaml:"name"`
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load researchers and their record sections from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0]) //nolint:gosec // G304: operator-supplied seed file
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	var doc importFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	reg, err := registry()
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	users := db.Users()
	own := db.Records(reg, source())
	var nUsers, nRecords int
	for _, u := range doc.Users {
		user := store.User{ID: u.ID, Name: u.Name, Email: u.Email, ORCID: u.ORCID}
		if err := users.SaveUser(ctx, &user); err != nil {
			return fmt.Errorf("user %q: %w", u.ID, err)
		}
		nUsers++

		codes := make([]string, 0, len(u.Sections))
		for code := range u.Sections {
			codes = append(codes, code)
		}
		slices.Sort(codes)
		for _, code := range codes {
			desc, err := reg.Lookup(code)
			if err != nil {
				return fmt.Errorf("user %q: %w", u.ID, err)
			}
			for i, rec := range u.Sections[code] {
				payload, err := importPayload(rec)
				if err != nil {
					return fmt.Errorf("user %q %s #%d: %w", u.ID, code, i+1, err)
				}
				records := own
				if rec.Source != nil {
					records = db.Records(reg, store.Source{ClientID: rec.Source.ClientID, Name: rec.Source.Name})
				}
				putCode, err := records.SaveRecord(ctx, user.ID, desc.Discriminator, "", payload)
				if err != nil {
					return fmt.Errorf("user %q %s #%d: %w", u.ID, code, i+1, err)
				}
				log.Debug(log.CatDB, "Imported record", "user", user.ID, "section", code, "put_code", putCode)
				nRecords++
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users and %d records\n", nUsers, nRecords)
	return nil
}

func importPayload(rec importRecord) (map[string]string, error) {
	payload := make(map[string]string, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		payload[k] = v
	}
	if len(rec.ExternalIDs) > 0 {
		ids := extid.NewList(rec.ExternalIDs...)
		for _, issue := range ids.Validate() {
			log.Warn(log.CatDB, "External identifier issue", "issue", issue.String())
		}
		data, err := ids.Marshal()
		if err != nil {
			return nil, err
		}
		payload[store.ExternalIDsField] = string(data)
	}
	return payload, nil
}
