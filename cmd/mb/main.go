package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"missionboard/internal/config"
	"missionboard/internal/db"
	"missionboard/internal/domain"
	"missionboard/internal/engine"
	"missionboard/internal/migrate"
	"missionboard/internal/ratelimit"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
	"missionboard/internal/server"
	"missionboard/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "mb",
	Short: "MissionBoard CLI",
	Long: `MissionBoard connects advertisers posting missions with missionaries doing them.
Core concepts:
- Spaces: every mission lives in "pro" (commercial) or "solidaire" (community) space.
- Missions: posted by advertisers, opened by an admin, with a limited number of slots.
- Applications: a missionary's request to work a mission; one per mission per user.
- Submissions: proof of completed work; acceptance claims a slot and grants XP.
- XP: an append-only ledger with global, pro, and solidaire counters and derived levels.
- Feed: accepted work can surface as realization posts, subject to the author's privacy.
- Follows: a capped social graph with a one-time XP bonus per new follow.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MISSIONBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "acting user identifier")
	rootCmd.PersistentFlags().String("active-role", "", "role to act under (missionary or advertiser)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("active-role", rootCmd.PersistentFlags().Lookup("active-role"))
}

func registerCommands() {
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(xpCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(userCreateCmd())
	user.AddCommand(userListCmd())
	user.AddCommand(userShowCmd())
	user.AddCommand(userGrantCmd())
	user.AddCommand(userRevokeCmd())
	return user
}

func userCreateCmd() *cobra.Command {
	var email, name, privacy string
	var userRoles []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CreateUser(ctx, engine.UserCreateOptions{
					Email:              email,
					DisplayName:        name,
					Roles:              userRoles,
					FeedPrivacyDefault: privacy,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&userRoles, "role", nil, "roles (missionary, advertiser, admin)")
	cmd.Flags().StringVar(&privacy, "privacy", "", "default feed privacy (auto, ask, never)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Name", "XP", "Pro", "Solidaire"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.Email, u.DisplayName, u.XP, u.XPPro, u.XPSolid})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max users")
	return cmd
}

func userShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user profile with levels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UserProfile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func userGrantCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "grant-role",
		Short: "Grant a role to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--user and --role required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.GrantRole(ctx, target, role)
			})
		},
	}
	cmd.Flags().StringVar(&target, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", "", "role")
	return cmd
}

func userRevokeCmd() *cobra.Command {
	var target, role string
	cmd := &cobra.Command{
		Use:   "revoke-role",
		Short: "Revoke a role from a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" || role == "" {
				return fmt.Errorf("--user and --role required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.RevokeRole(ctx, target, role)
			})
		},
	}
	cmd.Flags().StringVar(&target, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", "", "role")
	return cmd
}

func missionCmd() *cobra.Command {
	mission := &cobra.Command{
		Use:   "mission",
		Short: "Manage missions",
		Long:  "Missions flow pending -> open -> closed, with archived as the terminal exit. Only an admin moves pending to open.",
	}
	mission.AddCommand(missionCreateCmd())
	mission.AddCommand(missionListCmd())
	mission.AddCommand(missionShowCmd())
	mission.AddCommand(missionApproveCmd())
	mission.AddCommand(missionCloseCmd())
	mission.AddCommand(missionReopenCmd())
	mission.AddCommand(missionRejectCmd())
	return mission
}

func missionCreateCmd() *cobra.Command {
	var opts engine.MissionCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor roles.Actor) error {
				m, err := e.CreateMission(ctx, actor, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "mission title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Space, "space", "", "space (pro or solidaire)")
	cmd.Flags().StringVar(&opts.OrgID, "org", "", "organization id")
	cmd.Flags().IntVar(&opts.SlotsMax, "slots", 1, "number of slots")
	cmd.Flags().Int64Var(&opts.BaseXP, "base-xp", 0, "base XP on acceptance")
	cmd.Flags().Int64Var(&opts.BonusXP, "bonus-xp", 0, "bonus XP on acceptance")
	cmd.Flags().BoolVar(&opts.Hidden, "hidden", false, "hide from public listings")
	cmd.Flags().BoolVar(&opts.Featured, "featured", false, "feature in listings")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("space")
	return cmd
}

func missionListCmd() *cobra.Command {
	var f repo.MissionFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListMissions(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Space", "Status", "Slots", "XP"})
				for _, m := range items {
					slots := fmt.Sprintf("%d/%d", m.SlotsTaken, m.SlotsMax)
					tw.AppendRow(table.Row{m.ID, m.Title, m.Space, m.Status, slots, m.BaseXP + m.BonusXP})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Space, "space", "", "space filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.OwnerID, "owner", "", "owner filter")
	cmd.Flags().BoolVar(&f.IncludeHidden, "include-hidden", false, "include hidden missions")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "max missions")
	return cmd
}

func missionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <mission-id>",
		Short: "Show a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				m, err := r.GetMission(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	return cmd
}

func missionActionCmd(use, short string, fn func(engine.Engine) func(context.Context, roles.Actor, string) (domain.Mission, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor roles.Actor) error {
				m, err := fn(e)(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
}

func missionApproveCmd() *cobra.Command {
	return missionActionCmd("approve <mission-id>", "Approve a pending mission", func(e engine.Engine) func(context.Context, roles.Actor, string) (domain.Mission, error) {
		return e.ApproveMission
	})
}

func missionCloseCmd() *cobra.Command {
	return missionActionCmd("close <mission-id>", "Close an open mission", func(e engine.Engine) func(context.Context, roles.Actor, string) (domain.Mission, error) {
		return e.CloseMission
	})
}

func missionReopenCmd() *cobra.Command {
	return missionActionCmd("reopen <mission-id>", "Reopen a closed mission", func(e engine.Engine) func(context.Context, roles.Actor, string) (domain.Mission, error) {
		return e.ReopenMission
	})
}

func missionRejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <mission-id>",
		Short: "Archive a mission with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActor(cmd.Context(), func(ctx context.Context, e engine.Engine, actor roles.Actor) error {
				m, err := e.RejectMission(ctx, actor, args[0], reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	return cmd
}

func xpCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "xp", Short: "XP ledger operations"}
	cmd.AddCommand(xpEventsCmd())
	cmd.AddCommand(xpRebuildCmd())
	return cmd
}

func xpEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <user-id>",
		Short: "List a user's XP ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListXpEvents(ctx, args[0], limit, 0)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Kind", "Delta", "Space", "Mission", "At"})
				for _, ev := range items {
					mission := ""
					if ev.MissionID != nil {
						mission = *ev.MissionID
					}
					space := ""
					if ev.Space != nil {
						space = *ev.Space
					}
					tw.AppendRow(table.Row{ev.ID, ev.Kind, ev.Delta, space, mission, ev.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max events")
	return cmd
}

func xpRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild <user-id>",
		Short: "Rebuild cached XP counters from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counters, err := e.RebuildXpCounters(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(counters)
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	cmd.AddCommand(apikeyCreateCmd())
	cmd.AddCommand(apikeyListCmd())
	cmd.AddCommand(apikeyDeleteCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var userID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key (shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user required")
			}
			raw := make([]byte, 24)
			if _, err := rand.Read(raw); err != nil {
				return err
			}
			key := "mb_" + hex.EncodeToString(raw)
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				k := domain.APIKey{
					ID:        uuid.NewString(),
					UserID:    userID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(key),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, nil, k); err != nil {
					return err
				}
				fmt.Printf("API key (save it now, it is not stored): %s\n", key)
				return printJSONOrTable(k)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacy bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			secret := os.Getenv("MISSIONBOARD_JWT_SECRET")
			if secret == "" {
				secret = cfg.Server.JWTSecret
			}
			if secret == "" && !allowLegacy {
				return fmt.Errorf("MISSIONBOARD_JWT_SECRET is required for bearer auth (or pass --allow-legacy-actor-header for local use)")
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			signingSecret := cfg.Media.SigningSecret
			if signingSecret == "" {
				signingSecret = secret
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret:              secret,
					AllowLegacyActorHeader: allowLegacy || cfg.Server.AllowLegacyActorHeader,
				},
				Limiter: ratelimit.NewWindow(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second),
				Signer:  storage.Signer{Secret: []byte(signingSecret), Bucket: cfg.Media.Bucket},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving MissionBoard API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	cmd.Flags().BoolVar(&allowLegacy, "allow-legacy-actor-header", false, "accept X-Actor-Id without auth (development only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withActor(ctx context.Context, fn func(context.Context, engine.Engine, roles.Actor) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		svc := roles.Service{DB: e.DB}
		actor, err := svc.Resolve(ctx, viper.GetString("actor-id"), viper.GetString("active-role"))
		if err != nil {
			return err
		}
		return fn(ctx, e, actor)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
