package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdugdh24/handshake-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/gdugdh24/handshake-backend/internal/repository"
	"github.com/gdugdh24/handshake-backend/internal/usecase/chain"
	"github.com/gdugdh24/handshake-backend/internal/usecase/cluster"
	"github.com/gdugdh24/handshake-backend/internal/usecase/recipient"
	"github.com/spf13/cobra"
)

type engine struct {
	recipients  *recipient.RecipientUseCase
	chains      *chain.ChainUseCase
	clusters    *cluster.ClusterUseCase
	connections repository.ConnectionRepository
}

type loader func(ctx context.Context) (*engine, func(), error)

func newRootCmd(load loader) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "graphctl",
		Short:         "Operate the handshake graph engine",
		Long:          `Runs recipient resolution, chain discovery and clustering against the stores configured in .env or the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// withEngine opens the stores for one command and closes them afterwards.
	withEngine := func(run func(cmd *cobra.Command, args []string, e *engine) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, args, e)
		}
	}

	var (
		depth   int
		limit   int
		exclude []string
	)
	recipientsCmd := &cobra.Command{
		Use:   "recipients [seed-user-id]",
		Short: "List users reachable from a seed, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(cmd *cobra.Command, args []string, e *engine) error {
			reached, err := e.recipients.Resolve(cmd.Context(), recipient.ResolveRequest{
				SeedID:        args[0],
				MaxDepth:      depth,
				MaxRecipients: limit,
				Exclude:       exclude,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, reached)
		}),
	}
	recipientsCmd.Flags().IntVar(&depth, "depth", 3, "maximum hop distance (0 for unbounded)")
	recipientsCmd.Flags().IntVar(&limit, "limit", 50, "maximum recipients (0 for unbounded)")
	recipientsCmd.Flags().StringSliceVar(&exclude, "exclude", nil, "user ids to leave out of the result")

	discoverCmd := &cobra.Command{
		Use:   "discover [seed-user-id]",
		Short: "Find and store new exchange chains around a user",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(cmd *cobra.Command, args []string, e *engine) error {
			chains, err := e.chains.Discover(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, chains)
		}),
	}

	var (
		asUser string
		admin  bool
	)
	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "Print connected components of the handshake graph",
		Args:  cobra.NoArgs,
		RunE: withEngine(func(cmd *cobra.Command, _ []string, e *engine) error {
			clusters, err := e.clusters.List(cmd.Context(), cluster.Caller{UserID: asUser, Privileged: admin})
			if err != nil {
				return err
			}
			return printJSON(cmd, clusters)
		}),
	}
	clustersCmd.Flags().StringVar(&asUser, "as", "", "mark the component containing this user")
	clustersCmd.Flags().BoolVar(&admin, "admin", true, "include unconnected users")

	connectCmd := &cobra.Command{
		Use:   "connect [user-a] [user-b]",
		Short: "Record a handshake between two users",
		Args:  cobra.ExactArgs(2),
		RunE: withEngine(func(cmd *cobra.Command, args []string, e *engine) error {
			conn, err := domain.NewConnection(args[0], args[1])
			if err != nil {
				return err
			}
			if err := e.connections.Create(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected %s and %s\n", conn.UserA, conn.UserB)
			return nil
		}),
	}

	pruneCmd := &cobra.Command{
		Use:   "prune-notifications",
		Short: "Delete expired help-request notifications",
		Args:  cobra.NoArgs,
		RunE: withEngine(func(cmd *cobra.Command, _ []string, e *engine) error {
			removed, err := e.recipients.PruneExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d notifications\n", removed)
			return nil
		}),
	}

	var (
		role string
		ttl  time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint a bearer token for local testing",
		Long:  `Signs a token with JWT_ACCESS_SECRET. Does not touch any store.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_ACCESS_SECRET")
			if strings.TrimSpace(secret) == "" {
				return domain.ErrInvalidInput
			}
			token, err := middleware.IssueToken(secret, args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&role, "role", "", `caller role ("admin" is privileged)`)
	tokenCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(recipientsCmd, discoverCmd, clustersCmd, connectCmd, pruneCmd, tokenCmd)
	return rootCmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
