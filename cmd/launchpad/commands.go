package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"launchpad/internal/forum"
	"launchpad/internal/identity"
	"launchpad/internal/logger"
	"launchpad/internal/models"
	"launchpad/internal/store"
	"launchpad/internal/utils"
)

const defaultAPI = "http://localhost:8080"

type app struct {
	apiURL       string
	identityPath string
	verbose      bool
	out          io.Writer

	who   identity.Identity
	board *forum.Board
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{out: out}

	apiDefault := os.Getenv("LAUNCHPAD_API")
	if apiDefault == "" {
		apiDefault = defaultAPI
	}

	root := &cobra.Command{
		Use:   "launchpad",
		Short: "Browse and post to a Launchpad forum from the terminal",
		Long: `launchpad talks to the /api endpoints of a Launchpad server.
Your pseudo-identity is kept in a local file and created on first use.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api", apiDefault, "base URL of the Launchpad server (env LAUNCHPAD_API)")
	root.PersistentFlags().StringVar(&a.identityPath, "identity", identity.DefaultPath(), "identity file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log store calls")

	root.AddCommand(
		a.whoamiCmd(),
		a.listCmd(),
		a.showCmd(),
		a.upvoteCmd(),
		a.createCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.commentCmd(),
		a.repostCmd(),
	)
	return root, a
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger.Init(level, false)

	who, err := identity.LoadOrCreate(a.identityPath)
	if err != nil {
		return err
	}
	a.who = who
	a.board = forum.NewBoard(store.NewHTTPStore(a.apiURL, nil), forum.WithLogger(logger.Component("cli")))
	return nil
}

// close drains pending counter writes.
func (a *app) close() {
	if a.board != nil {
		a.board.Close()
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print your pseudo-identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "%s\nid: %s\nfile: %s\n", a.who.Name, a.who.ID, a.identityPath)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var (
		q      forum.Query
		sortBy string
		flag   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Sort = store.ParseOrder(sortBy)
			q.Flag = models.Flag(flag)
			if !q.Flag.Valid() {
				return fmt.Errorf("unknown flag %q", flag)
			}
			if err := a.board.Refresh(cmd.Context(), q.Sort); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REF\tUPVOTES\tCOMMENTS\tCATEGORY\tFLAG\tTITLE")
			for _, p := range a.board.Filter(q) {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n", p.Ref(), p.Upvotes, p.CommentsCount, p.Category, p.Flag, p.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", string(store.OrderCreatedAt), "created_at or upvotes")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "match title, content or author")
	cmd.Flags().StringVarP(&q.Category, "category", "c", "", "only this category")
	cmd.Flags().StringVar(&flag, "flag", "", "only this discussion type")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := a.board.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := th.Post()

			fmt.Fprintf(a.out, "%s\n", p.Title)
			fmt.Fprintf(a.out, "%s · %s · by %s · %s\n", p.Category, orDash(string(p.Flag)), p.Author, utils.TimeAgo(p.CreatedAt))
			fmt.Fprintf(a.out, "▲ %d  💬 %d  👁 %d\n\n", p.Upvotes, p.CommentsCount, p.Views)
			fmt.Fprintf(a.out, "%s\n\n", p.Content)
			fmt.Fprintf(a.out, "stage: %s  location: %s  revenue: %s\n", p.FundingStage, p.Location, p.Revenue)
			if tags := p.TagList(); len(tags) > 0 {
				fmt.Fprintf(a.out, "tags: %s\n", strings.Join(tags, ", "))
			}
			if p.Website != "" {
				fmt.Fprintf(a.out, "web: %s\n", p.Website)
			}

			comments := th.Comments()
			fmt.Fprintf(a.out, "\n%d comments\n", len(comments))
			for _, c := range comments {
				fmt.Fprintf(a.out, "- %s (%s): %s\n", c.Author, utils.TimeAgo(c.CreatedAt), c.Content)
			}
			return nil
		},
	}
}

func (a *app) upvoteCmd() *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:   "upvote <ref>",
		Short: "Upvote a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if times < 1 {
				return fmt.Errorf("-n must be at least 1")
			}
			th, err := a.board.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var n int
			for i := 0; i < times; i++ {
				if n, err = th.Upvote(); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "%s: %d upvotes\n", th.Ref(), n)
			return nil
		},
	}
	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of upvotes")
	return cmd
}

// postFlags registers the editable post fields on fs.
func postFlags(fs *pflag.FlagSet, in *forum.PostInput) {
	fs.StringVarP(&in.Title, "title", "t", "", "title")
	fs.StringVarP(&in.Content, "content", "m", "", "pitch, markdown")
	fs.StringVarP(&in.Category, "category", "c", "", "category, e.g. SaaS")
	fs.StringVar((*string)(&in.Flag), "flag", "", "Question, Opinion, Discussion or News")
	fs.StringVar(&in.Tags, "tags", "", "comma separated tags")
	fs.StringVar(&in.FundingStage, "funding-stage", "", "funding stage")
	fs.StringVar(&in.Location, "location", "", "location")
	fs.StringVar(&in.Website, "website", "", "website URL")
	fs.StringVar(&in.Revenue, "revenue", "", "revenue")
	fs.StringVar(&in.ImageURL, "image", "", "cover image URL")
	fs.StringVar(&in.VideoURL, "video", "", "demo video URL")
}

func (a *app) createCmd() *cobra.Command {
	var in forum.PostInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Share a startup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.board.Create(cmd.Context(), a.who, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s\n", p.Ref())
			return nil
		},
	}
	postFlags(cmd.Flags(), &in)
	cmd.Flags().StringVar(&in.Author, "author", "", "display name (default: your identity name)")
	cmd.Flags().StringVar(&in.SecretKey, "secret-key", "", "lets you edit from another identity")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var (
		changes forum.PostInput
		key     string
	)
	cmd := &cobra.Command{
		Use:   "edit <ref>",
		Short: "Change fields of a post you own or hold the key for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := a.board.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			in := forum.InputFromPost(th.Post())
			fs := cmd.Flags()
			set := func(name string, dst *string, v string) {
				if fs.Changed(name) {
					*dst = v
				}
			}
			set("title", &in.Title, changes.Title)
			set("content", &in.Content, changes.Content)
			set("category", &in.Category, changes.Category)
			set("flag", (*string)(&in.Flag), string(changes.Flag))
			set("tags", &in.Tags, changes.Tags)
			set("funding-stage", &in.FundingStage, changes.FundingStage)
			set("location", &in.Location, changes.Location)
			set("website", &in.Website, changes.Website)
			set("revenue", &in.Revenue, changes.Revenue)
			set("image", &in.ImageURL, changes.ImageURL)
			set("video", &in.VideoURL, changes.VideoURL)

			p, err := a.board.Update(cmd.Context(), th.Ref(), a.who, key, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "updated %s\n", p.Ref())
			return nil
		},
	}
	postFlags(cmd.Flags(), &changes)
	cmd.Flags().StringVar(&key, "key", "", "secret key, when the post is not yours")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a post you own or hold the key for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.board.Delete(cmd.Context(), args[0], a.who, key); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "secret key, when the post is not yours")
	return cmd
}

func (a *app) commentCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "comment <ref> <text>...",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			th, err := a.board.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if author == "" {
				author = a.who.Name
			}
			c, err := th.Comment(ctx, author, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "commented on %s as %s\n", th.Ref(), c.Author)
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "display name (default: your identity name)")
	return cmd
}

func (a *app) repostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repost <ref>",
		Short: "Start a discussion quoting a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.board.Repost(cmd.Context(), a.who, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "reposted %s as %s\n", args[0], p.Ref())
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
