package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/imgrelay/internal/domain"
	"github.com/kitbuilder587/imgrelay/internal/httpapi"
	"github.com/kitbuilder587/imgrelay/internal/service"
)

var errPipelineFailed = errors.New("pipeline failed")

var getCmd = &cobra.Command{
	Use:   "get <product>",
	Short: "Run the search-download-upload pipeline once and print the result as JSON",
	Example: `  IMGBB_KEY=... imgrelay get cat
  imgrelay get "red sneakers" --key ...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		if key == "" {
			key = os.Getenv("IMGBB_KEY")
		}
		if key == "" {
			return errors.New("imgbb key is required: pass --key or set IMGBB_KEY")
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runGet(ctx, buildService(cfg, logger, nil), args[0], key, cmd.OutOrStdout())
	},
}

func init() {
	getCmd.Flags().StringP("key", "k", "", "imgbb API key (default $IMGBB_KEY)")
}

// runGet печатает то же тело, что вернул бы /get_image_url.
func runGet(ctx context.Context, svc service.ImageService, product, key string, out io.Writer) error {
	res, err := svc.Process(ctx, &domain.ImageRequest{Query: product, Credential: key})

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	if err != nil {
		if encErr := enc.Encode(httpapi.ErrorBody(err)); encErr != nil {
			return encErr
		}
		return errPipelineFailed
	}
	return enc.Encode(httpapi.SuccessBody(product, res.URL))
}
