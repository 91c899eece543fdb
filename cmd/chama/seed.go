package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"chama_admin/internal/app"
	"chama_admin/internal/domain/member"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// roster is the seed file layout:
//
//	members:
//	  - user_id: alice
//	    full_name: Alice Wanjiku
//	    phone_number: "254712345678"
//	    daily_contribution_amount: "100"
type roster struct {
	Members []rosterMember `yaml:"members"`
}

type rosterMember struct {
	ID                      string `yaml:"user_id"`
	FullName                string `yaml:"full_name"`
	PhoneNumber             string `yaml:"phone_number"`
	DailyContributionAmount string `yaml:"daily_contribution_amount"`
}

func (r rosterMember) toMember() (*member.Member, error) {
	daily := decimal.Zero
	if r.DailyContributionAmount != "" {
		var err error
		daily, err = decimal.NewFromString(r.DailyContributionAmount)
		if err != nil {
			return nil, fmt.Errorf("member %q: invalid daily_contribution_amount: %w", r.ID, err)
		}
	}
	return &member.Member{
		ID:                      r.ID,
		FullName:                r.FullName,
		PhoneNumber:             r.PhoneNumber,
		DailyContributionAmount: daily,
	}, nil
}

func parseRoster(r io.Reader) (*roster, error) {
	var ro roster
	if err := yaml.NewDecoder(r).Decode(&ro); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return &ro, nil
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [roster.yaml]",
		Short: "Register members from a YAML roster",
		Long: `Register every member listed in a YAML roster. Members that already
exist are skipped.

Examples:
  chama seed members.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ro, err := parseRoster(f)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			svc := newServices(cfg, st, app.NopNotifier{})
			return seedMembers(cmd, svc.members, ro)
		},
	}
}

func seedMembers(cmd *cobra.Command, members *app.MemberService, ro *roster) error {
	out := cmd.OutOrStdout()
	var created, skipped int
	for _, rm := range ro.Members {
		m, err := rm.toMember()
		if err != nil {
			return err
		}
		_, err = members.Register(cmd.Context(), m)
		switch {
		case errors.Is(err, app.ErrMemberAlreadyExists):
			skipped++
		case err != nil:
			return fmt.Errorf("member %q: %s", rm.ID, app.Message(err))
		default:
			created++
		}
	}
	fmt.Fprintf(out, "%d member(s) registered, %d already present\n", created, skipped)
	return nil
}
