package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/autodeployr/engine/pkg/imagetag"
)

var imagesQuiet bool
var imagesFunction string

func newImagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "images",
		Short:   "List the function images the engine has built",
		RunE:    imagesCommand,
		Args:    cobra.NoArgs,
		Aliases: []string{"ls"},
	}
	addUserFlag(cmd)
	cmd.Flags().StringVarP(&imagesFunction, "function", "f", "", "Only list images of this function")
	cmd.Flags().BoolVarP(&imagesQuiet, "quiet", "q", false, "Quiet output, only display image tags")
	return cmd
}

type imageRow struct {
	tag     imagetag.ImageTag
	created time.Time
}

func imagesCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := newDockerClient(ctx, cfg)
	if err != nil {
		return err
	}
	summaries, err := client.ImageList(ctx)
	if err != nil {
		return err
	}

	prefix := imagetag.Sanitize(cfg.TagPrefix)
	user := imagetag.Sanitize(userFlag)
	function := imagetag.Sanitize(imagesFunction)

	var rows []imageRow
	for _, summary := range summaries {
		for _, repoTag := range summary.RepoTags {
			tag, err := imagetag.Parse(repoTag)
			if err != nil {
				continue
			}
			id := tag.Identity()
			if id.Prefix != prefix {
				continue
			}
			if user != "" && id.UserID != user {
				continue
			}
			if function != "" && id.FunctionName != function {
				continue
			}
			rows = append(rows, imageRow{tag: tag, created: summary.Created})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].created.After(rows[j].created)
	})

	if imagesQuiet {
		for _, row := range rows {
			fmt.Println(row.tag.String())
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tUSER\tFUNCTION\tCREATED")
	for _, row := range rows {
		id := row.tag.Identity()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.tag.String(), id.UserID, id.FunctionName, timeago.English.Format(row.created))
	}
	return w.Flush()
}
