package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jrsteele09/narrate-web/api"
	"github.com/jrsteele09/narrate-web/internal/app"
	"github.com/jrsteele09/narrate-web/internal/utils"
	"github.com/jrsteele09/narrate-web/users"
	"github.com/spf13/cobra"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "voices", Short: "Browse narration voices"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				voices, err := a.API.ListVoices(cmd.Context())
				if err != nil {
					return err
				}
				if f := ctx.output(); f != outputTable {
					return writeStructured(cmd.OutOrStdout(), f, voices)
				}
				rows := make([][]string, 0, len(voices))
				for _, v := range voices {
					rows = append(rows, []string{v.VoiceID, v.Name, v.Category, v.Description})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Voice ID", "Name", "Category", "Description"}, rows, nil))
				return nil
			})
		},
	})

	var text string
	preview := &cobra.Command{
		Use:   "preview <voice-id>",
		Short: "Render a short sample of a voice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				p, err := a.API.PreviewVoice(cmd.Context(), args[0], text)
				if err != nil {
					return err
				}
				if f := ctx.output(); f != outputTable {
					return writeStructured(cmd.OutOrStdout(), f, p)
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.AudioURL)
				return nil
			})
		},
	}
	preview.Flags().StringVar(&text, "text", "Hello, this is how I sound.", "Sample text to speak")
	cmd.AddCommand(preview)

	return cmd
}

func newVideosCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "videos", Short: "Manage narrated videos"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				videos, err := a.API.ListVideos(cmd.Context())
				if err != nil {
					return err
				}
				if f := ctx.output(); f != outputTable {
					return writeStructured(cmd.OutOrStdout(), f, videos)
				}
				rows := make([][]string, 0, len(videos))
				for _, v := range videos {
					rows = append(rows, []string{
						strconv.FormatInt(v.ID, 10),
						v.OriginalFilename,
						v.Status,
						humanize.Bytes(uint64(max(v.FileSize, 0))),
						v.CreatedAt,
					})
				}
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "File", "Status", "Size", "Created"}, rows, aligns))
				return nil
			})
		},
	})

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid video id %q", args[0])
			}
			if !yes {
				ok, err := confirmAction(fmt.Sprintf("Delete video %d?", id))
				if err != nil || !ok {
					return err
				}
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.API.DeleteVideo(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted video %d\n", id)
				return nil
			})
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(del)

	return cmd
}

func newReelsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "reels", Short: "Generate short-form reels"}

	var req api.ScriptRequest
	script := &cobra.Command{
		Use:   "script <topic>",
		Short: "Write a reel script for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Topic = strings.Join(args, " ")
			return ctx.withApp(cmd, func(a *app.App) error {
				out, err := a.API.GenerateReelScript(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeStructured(cmd.OutOrStdout(), outputJSON, out.Script)
			})
		},
	}
	script.Flags().StringVar(&req.Style, "style", "viral", "Script style")
	script.Flags().IntVar(&req.Duration, "duration", 30, "Target length in seconds")
	cmd.AddCommand(script)

	var voiceID, bgMusic string
	create := &cobra.Command{
		Use:   "create <script.json>",
		Short: "Render a reel from a script produced by `reels script`",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s is not valid JSON", args[0])
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if sess, ok := a.Session.Current(); ok && !sess.Profile.CanAfford(users.ReelCost) {
					return fmt.Errorf("a reel costs %d credits, you have %d", users.ReelCost, sess.Profile.Credits)
				}
				out, err := a.API.CreateReel(cmd.Context(), api.ReelRequest{Script: raw, VoiceID: voiceID, BgMusic: bgMusic})
				if err != nil {
					return err
				}
				var v any
				if err := json.Unmarshal(out, &v); err != nil {
					return err
				}
				return writeStructured(cmd.OutOrStdout(), ctx.outputOr(outputJSON), v)
			})
		},
	}
	create.Flags().StringVar(&voiceID, "voice", "", "Voice ID for the narration")
	create.Flags().StringVar(&bgMusic, "bg-music", "", "Background music track")
	cmd.AddCommand(create)

	return cmd
}

func newSocialCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "social", Short: "Manage linked social accounts"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List linked accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				accounts, err := a.API.ListSocialAccounts(cmd.Context())
				if err != nil {
					return err
				}
				if f := ctx.output(); f != outputTable {
					return writeStructured(cmd.OutOrStdout(), f, accounts)
				}
				rows := make([][]string, 0, len(accounts))
				for _, acc := range accounts {
					rows = append(rows, []string{strconv.FormatInt(acc.ID, 10), acc.Platform, acc.Username, acc.ConnectedAt})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Platform", "Username", "Connected"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "connect <platform>",
		Short:     "Print the authorisation link for a platform",
		Args:      cobra.ExactArgs(1),
		ValidArgs: api.SocialPlatforms,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(api.SocialPlatforms, args[0]) {
				return fmt.Errorf("unknown platform %q (supported: %s)", args[0], strings.Join(api.SocialPlatforms, ", "))
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				u, err := a.API.SocialLoginURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect <id>",
		Short: "Unlink an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				if err := a.API.DisconnectSocialAccount(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Disconnected account %d\n", id)
				return nil
			})
		},
	})

	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var opts api.AnalyzeOptions
	var stability, similarity, speed float64
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Upload a video and generate its narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			// Voice settings the user did not set are left to the backend defaults.
			flags := cmd.Flags()
			opts.Stability = utils.PtrIf(flags.Changed("stability"), stability)
			opts.SimilarityBoost = utils.PtrIf(flags.Changed("similarity-boost"), similarity)
			opts.Speed = utils.PtrIf(flags.Changed("speed"), speed)

			return ctx.withApp(cmd, func(a *app.App) error {
				res, err := a.API.AnalyzeVideo(cmd.Context(), args[0], f, opts)
				if err != nil {
					return err
				}
				if out := ctx.output(); out != outputTable {
					return writeStructured(cmd.OutOrStdout(), out, res)
				}
				rows := make([][]string, 0, len(res.Analysis.Beats))
				for _, b := range res.Analysis.Beats {
					rows = append(rows, []string{
						strconv.Itoa(b.ID),
						fmt.Sprintf("%.1fs-%.1fs", b.StartS, b.EndS),
						b.Voiceover.Script,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Beat", "Time", "Voiceover"}, rows, []columnAlignment{alignRight}))
				if res.OutputVideo != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", res.OutputVideo)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Style, "style", "viral", "Narration style")
	cmd.Flags().StringVar(&opts.Pace, "pace", "medium", "Narration pace")
	cmd.Flags().StringVar(&opts.VoiceID, "voice", "", "Voice ID")
	cmd.Flags().Float64Var(&opts.OriginalVolume, "original-volume", 0, "Volume of the original audio, 0 to 1")
	cmd.Flags().Float64Var(&stability, "stability", 0.5, "Voice stability, 0 to 1")
	cmd.Flags().Float64Var(&similarity, "similarity-boost", 0.75, "Voice similarity boost, 0 to 1")
	cmd.Flags().Float64Var(&speed, "speed", 1, "Narration speed multiplier")
	return cmd
}
