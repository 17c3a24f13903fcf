package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/pensio/consultant-bot/internal/backend"
	"github.com/pensio/consultant-bot/internal/config"
	"github.com/pensio/consultant-bot/internal/task"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The consultant command is a smoke client for the pension consultant
// backend: it logs in, lists the available pension types and their document
// requirements, optionally runs a document through OCR extraction and
// optionally submits a case file for adjudication, polling both to
// completion.
func main() {
	imagePath := flag.String("image", "", "path of a document image to run through OCR extraction")
	imageType := flag.String("image-type", backend.DocumentPassport, "document type of the submitted image")
	casePath := flag.String("case", "", "path of a JSON case file to submit for adjudication")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	client, err := backend.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the backend client")
	}
	defer client.Close()

	ctx := context.Background()
	identity := backend.ProcessIdentity

	// List the available pension types and their document requirements
	types, err := client.PensionTypes(ctx, identity)
	if err != nil {
		log.Fatal().Err(err).Msg("could not list the pension types")
	}
	for _, pensionType := range types {
		documents, err := client.RequiredDocuments(ctx, identity, pensionType.ID)
		if err != nil {
			log.Fatal().Err(err).Str("pension_type", pensionType.ID).Msg("could not list the required documents")
		}
		names := make([]string, 0, len(documents))
		for _, document := range documents {
			names = append(names, document.Name)
		}
		log.Info().Str("id", pensionType.ID).Str("name", pensionType.DisplayName).Strs("documents", names).Msg("pension type")
	}

	if *imagePath != "" {
		runExtraction(ctx, client, identity, *imageType, *imagePath)
	}
	if *casePath != "" {
		runCase(ctx, client, identity, *casePath)
	}

	// Page through the case history
	history, err := client.CaseHistory(ctx, identity, 5, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("could not fetch the case history")
	}
	log.Info().Int("total", history.Total).Msg("case history")
	for _, entry := range history.Cases {
		log.Info().Int64("case_id", entry.CaseID).Str("status", entry.FinalStatus).Str("created_at", entry.CreatedAt).Msg("case")
	}
}

// runExtraction submits a document image for OCR extraction and polls the
// created task to a terminal status
func runExtraction(ctx context.Context, client *backend.Client, identity backend.Identity, documentType, path string) {
	image, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("could not read the document image")
	}

	submitted, err := client.SubmitExtraction(ctx, identity, documentType, "document.jpg", image)
	if err != nil {
		log.Fatal().Err(err).Msg("could not submit the document for extraction")
	}
	log.Info().Str("task_id", submitted.TaskID).Msg("extraction task submitted, polling...")

	status, err := client.WaitForExtraction(ctx, identity, submitted.TaskID, func(lap int) {
		log.Debug().Int("lap", lap).Msg("still extracting...")
	})
	if err != nil {
		log.Fatal().Err(err).Msg("extraction polling failed")
	}
	log.Info().Str("status", status.Status).RawJSON("data", orEmptyJSON(status.Data)).Msg("extraction finished")
}

// runCase submits a case file for adjudication and polls it to a terminal
// status on a background job
func runCase(ctx context.Context, client *backend.Client, identity backend.Identity, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("could not read the case file")
	}
	create := new(backend.CaseCreate)
	if err := json.Unmarshal(raw, create); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("could not parse the case file")
	}

	created, err := client.CreateCase(ctx, identity, create)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the case")
	}
	log.Info().Int64("case_id", created.CaseID).Msg("case created, polling adjudication...")

	job := task.Run(ctx, func(ctx context.Context) (*backend.CaseStatus, error) {
		return client.WaitForCase(ctx, identity, created.CaseID, func(lap int) {
			log.Debug().Int("lap", lap).Msg("still adjudicating...")
		})
	})
	status, err := job.Wait(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("case polling failed")
	}
	log.Info().
		Str("final_status", status.FinalStatus).
		Str("explanation", status.Explanation).
		Float64("confidence", status.ConfidenceScore).
		Msg("adjudication finished")
}

func orEmptyJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
