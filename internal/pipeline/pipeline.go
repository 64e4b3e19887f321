// Package pipeline orchestrates the full prompt-to-video flow: question
// decomposition, retrieval, lecture scripting, slide structuring,
// per-slide materialization, post-processing, and per-slide narration.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lecturegen/internal/apperr"
	"lecturegen/internal/job"
	"lecturegen/internal/layout"
	"lecturegen/internal/llm"
	"lecturegen/internal/llmtext"
	"lecturegen/internal/postproc"
	"lecturegen/internal/retrieval"
	"lecturegen/internal/slideworker"
	"lecturegen/internal/status"
)

// AssetProvider resolves the course-scoped binary assets the slide worker
// needs for voice cloning and avatar rendering.
type AssetProvider interface {
	VoiceSample(courseID string) ([]byte, error)
	SourceImage(courseID string) ([]byte, error)
}

// Pipeline wires every collaborator and piece of shared state the prompt
// flow depends on. One Pipeline instance serves every prompt; per-prompt
// state lives entirely in the status store and job manager.
type Pipeline struct {
	SplittingModel string
	SlidesGenModel string

	LLM        llm.Completer
	Retriever  retrieval.Retriever
	PostProc   postproc.Processor
	Layouts    *layout.Catalog
	Status     *status.Store
	Jobs       *job.Manager
	SlideQueue *slideworker.Queue
	Assets     AssetProvider

	MaterializeConcurrency int
}

var tracer = otel.Tracer("lecturegen/pipeline")

func startSpan(ctx context.Context, name, promptID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("prompt.id", promptID))
	return ctx, span
}

type decomposition struct {
	OriginalQuestion string   `json:"original_question"`
	Subqueries       []string `json:"subqueries"`
}

type scriptResponse struct {
	Text   string                `json:"text"`
	Assets []status.LectureAsset `json:"assets"`
}

type slideStructureResponse struct {
	Pages []struct {
		Index      int    `json:"index"`
		Content    string `json:"content"`
		LayoutName string `json:"layoutName"`
	} `json:"pages"`
}

// Run executes all seven phases for req. It is intended to run on a
// background task, not the HTTP handler goroutine that accepted req;
// the caller has already returned a 202 by the time this runs.
func (p *Pipeline) Run(ctx context.Context, req status.PromptRequest) {
	logger := log.With().Str("promptId", req.PromptID).Str("courseId", req.CourseID).Logger()

	decomp, ok := p.understand(ctx, req)
	if !ok {
		logger.Error().Msg("pipeline: understanding phase failed, aborting")
		return
	}

	chunks, ok := p.lookup(ctx, req, decomp)
	if !ok {
		logger.Error().Msg("pipeline: lookup phase failed, aborting")
		return
	}

	script, ok := p.generateScript(ctx, req, chunks)
	if !ok {
		logger.Error().Msg("pipeline: script phase failed, aborting")
		return
	}

	drafts, ok := p.structureSlides(ctx, req, script)
	if !ok {
		logger.Error().Msg("pipeline: slide structure phase failed, aborting")
		return
	}

	// Partial decks (some slides failed materialization) are still
	// post-processed and narrated with whatever materialized.
	materialized, _ := p.materializeSlides(ctx, req, drafts)

	p.postprocess(ctx, req, materialized, script.Assets)

	if len(materialized) > 0 {
		p.narrate(ctx, req, script, materialized)
	}
}

func (p *Pipeline) understand(ctx context.Context, req status.PromptRequest) (decomposition, bool) {
	ctx, span := startSpan(ctx, "pipeline.understand", req.PromptID)
	defer span.End()

	p.patch(ctx, req.PromptID, status.StatusPatch{StepUnderstanding: stepPtr(status.InProgress)})

	prompt := fmt.Sprintf(
		"Decompose the following study question into retrieval-friendly subqueries. "+
			"Respond with JSON only: {\"original_question\": string, \"subqueries\": [string]}.\nQuestion: %s",
		req.Prompt,
	)
	messages := []llm.Message{
		{Role: "system", Content: "You are a retrieval query planner. Always respond with a single JSON object."},
		{Role: "user", Content: prompt},
	}

	var decomp decomposition
	text, err := p.LLM.Complete(ctx, p.SplittingModel, messages, 0.2, 1024)
	if err == nil {
		if perr := llmtext.ParseJSON(text, &decomp); perr != nil {
			err = apperr.New(apperr.MalformedLLMOutput, perr)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("promptId", req.PromptID).Msg("pipeline: decomposition failed")
		p.patch(ctx, req.PromptID, status.StatusPatch{StepUnderstanding: stepPtr(status.Failed)})
		return decomposition{}, false
	}

	p.patch(ctx, req.PromptID, status.StatusPatch{StepUnderstanding: stepPtr(status.Done)})
	return decomp, true
}

func (p *Pipeline) lookup(ctx context.Context, req status.PromptRequest, decomp decomposition) ([]status.DocumentChunk, bool) {
	ctx, span := startSpan(ctx, "pipeline.lookup", req.PromptID)
	defer span.End()

	p.patch(ctx, req.PromptID, status.StatusPatch{StepLookup: stepPtr(status.InProgress)})

	var chunks []status.DocumentChunk
	for _, sq := range decomp.Subqueries {
		chunk, err := p.Retriever.Retrieve(ctx, req.CourseID, sq)
		if err != nil {
			log.Error().Err(err).Str("promptId", req.PromptID).Str("subquery", sq).Msg("pipeline: retrieval failed for subquery")
			continue
		}
		chunks = append(chunks, chunk)
	}

	go p.summarizeOutOfBand(req.PromptID, chunks)

	p.patch(ctx, req.PromptID, status.StatusPatch{StepLookup: stepPtr(status.Done)})
	return chunks, true
}

// summarizeOutOfBand runs on its own root context, independent of the
// pipeline's caller, so a slow or failed summary never holds up slide
// materialization: the pipeline never waits on it.
func (p *Pipeline) summarizeOutOfBand(promptID string, chunks []status.DocumentChunk) {
	ctx := context.Background()
	var sb strings.Builder
	for _, c := range chunks {
		for _, line := range c.Content {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return
	}

	messages := []llm.Message{
		{Role: "system", Content: "Summarize the following course material in 3-4 sentences."},
		{Role: "user", Content: sb.String()},
	}
	summary, err := p.LLM.Complete(ctx, p.SplittingModel, messages, 0.3, 512)
	if err != nil {
		log.Warn().Err(err).Str("promptId", promptID).Msg("pipeline: lecture summary failed, continuing without it")
		return
	}
	p.patch(ctx, promptID, status.StatusPatch{LectureSummary: &summary})
}

func (p *Pipeline) generateScript(ctx context.Context, req status.PromptRequest, chunks []status.DocumentChunk) (scriptResponse, bool) {
	ctx, span := startSpan(ctx, "pipeline.script", req.PromptID)
	defer span.End()

	p.patch(ctx, req.PromptID, status.StatusPatch{StepLectureScriptGeneration: stepPtr(status.InProgress)})

	var contextBuilder strings.Builder
	for _, c := range chunks {
		for _, line := range c.Content {
			contextBuilder.WriteString("- ")
			contextBuilder.WriteString(line)
			contextBuilder.WriteString("\n")
		}
	}

	messages := []llm.Message{
		{Role: "system", Content: personaSystemPrompt(req.UserPersona)},
		{Role: "user", Content: fmt.Sprintf(
			"Write a single coherent lecture script answering: %s\n\nContext:\n%s\n\n"+
				"Respond with JSON only: {\"text\": string, \"assets\": [{\"name\":string,\"description\":string,\"mimeType\":string,\"data\":string}]}.",
			req.Prompt, contextBuilder.String(),
		)},
	}

	var script scriptResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var text string
		text, err = p.LLM.Complete(ctx, p.SlidesGenModel, messages, 0.5, 4096)
		if err != nil {
			continue
		}
		if perr := llmtext.ParseJSON(text, &script); perr != nil {
			err = apperr.New(apperr.MalformedLLMOutput, perr)
			continue
		}
		break
	}
	if err != nil {
		log.Error().Err(err).Str("promptId", req.PromptID).Msg("pipeline: lecture script generation failed after retries")
		p.patch(ctx, req.PromptID, status.StatusPatch{StepLectureScriptGeneration: stepPtr(status.Failed)})
		return scriptResponse{}, false
	}

	p.patch(ctx, req.PromptID, status.StatusPatch{StepLectureScriptGeneration: stepPtr(status.Done)})
	return script, true
}

func (p *Pipeline) structureSlides(ctx context.Context, req status.PromptRequest, script scriptResponse) ([]status.SlideDraft, bool) {
	ctx, span := startSpan(ctx, "pipeline.structure", req.PromptID)
	defer span.End()

	p.patch(ctx, req.PromptID, status.StatusPatch{StepSlideStructureGeneration: stepPtr(status.InProgress)})

	layoutNames := make([]string, 0)
	for _, l := range p.Layouts.Descriptions() {
		layoutNames = append(layoutNames, l.Name)
	}

	messages := []llm.Message{
		{Role: "system", Content: "You split lecture scripts into ordered slide drafts for a slide deck."},
		{Role: "user", Content: fmt.Sprintf(
			"Split this lecture script into ordered slide drafts. Each draft must name a layout from: %s. "+
				"Respond with JSON only: {\"pages\": [{\"index\":int,\"content\":string,\"layoutName\":string}]}.\n\nScript:\n%s",
			strings.Join(layoutNames, ", "), script.Text,
		)},
	}

	var parsed slideStructureResponse
	text, err := p.LLM.Complete(ctx, p.SlidesGenModel, messages, 0.4, 4096)
	if err == nil {
		if perr := llmtext.ParseJSON(text, &parsed); perr != nil {
			err = apperr.New(apperr.MalformedLLMOutput, perr)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("promptId", req.PromptID).Msg("pipeline: slide structure generation failed")
		p.patch(ctx, req.PromptID, status.StatusPatch{StepSlideStructureGeneration: stepPtr(status.Failed)})
		return nil, false
	}

	drafts := make([]status.SlideDraft, len(parsed.Pages))
	for i, pg := range parsed.Pages {
		layoutName := p.Layouts.Get(pg.LayoutName).Name
		drafts[i] = status.SlideDraft{Index: i + 1, Content: pg.Content, LayoutName: layoutName}
	}

	p.patch(ctx, req.PromptID, status.StatusPatch{
		StepSlideStructureGeneration: stepPtr(status.Done),
		SlideStructure:               &status.SlideStructure{Pages: drafts},
	})
	return drafts, true
}

// materializedSlide is one slide's filled-in Markdown body, ready to be
// joined into the final deck.
type materializedSlide struct {
	Index   int
	Body    string
	Content string
}

func (p *Pipeline) materializeSlides(ctx context.Context, req status.PromptRequest, drafts []status.SlideDraft) ([]materializedSlide, bool) {
	ctx, span := startSpan(ctx, "pipeline.materialize", req.PromptID)
	defer span.End()

	p.Jobs.Init(req.PromptID, len(drafts))

	results := make([]materializedSlide, len(drafts))
	limit := p.MaterializeConcurrency
	if limit <= 0 {
		limit = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var failures atomic.Int64
	for i, draft := range drafts {
		i, draft := i, draft
		g.Go(func() error {
			body, err := p.materializeOne(gctx, req, draft)
			if err != nil {
				log.Error().Err(err).Str("promptId", req.PromptID).Int("slide", i).Msg("pipeline: slide materialization failed")
				failures.Add(1)
				body = draft.Content
			}
			results[i] = materializedSlide{Index: i, Body: body, Content: draft.Content}
			p.Jobs.FinishPage(req.PromptID)
			p.Status.IncrementSlideGeneration(ctx, req.PromptID)
			return nil
		})
	}
	_ = g.Wait()

	return results, failures.Load() == 0
}

func (p *Pipeline) materializeOne(ctx context.Context, req status.PromptRequest, draft status.SlideDraft) (string, error) {
	l := p.Layouts.Get(draft.LayoutName)

	var fieldDescriptions strings.Builder
	for _, f := range l.Fields {
		fieldDescriptions.WriteString(fmt.Sprintf("- %s: %s\n", f.Name, f.Description))
	}

	messages := []llm.Message{
		{Role: "system", Content: "You fill slide layout templates with content extracted from lecture text."},
		{Role: "user", Content: fmt.Sprintf(
			"Fill the following fields for a %q layout slide, from this content:\n%s\n\nFields:\n%s\n\nRespond with a flat JSON object mapping field name to value.",
			l.Name, draft.Content, fieldDescriptions.String(),
		)},
	}

	text, err := p.LLM.Complete(ctx, p.SlidesGenModel, messages, 0.4, 1024)
	if err != nil {
		return "", err
	}

	var fields map[string]string
	if err := llmtext.ParseJSON(text, &fields); err != nil {
		return "", apperr.New(apperr.MalformedLLMOutput, fmt.Errorf("materialize: parse field values: %w", err))
	}

	return l.Materialize(fields)
}

func (p *Pipeline) postprocess(ctx context.Context, req status.PromptRequest, slides []materializedSlide, assets []status.LectureAsset) {
	ctx, span := startSpan(ctx, "pipeline.postprocess", req.PromptID)
	defer span.End()

	var deck strings.Builder
	for _, s := range slides {
		deck.WriteString(s.Body)
		deck.WriteString("\n\n")
	}
	uploads := make([]postproc.Asset, 0, len(assets))
	for _, a := range assets {
		uploads = append(uploads, postproc.Asset{Path: a.Name, Data: a.Data})
	}

	result, err := p.PostProc.Upload(ctx, req.PromptID, "default", deck.String(), uploads)
	if err != nil {
		log.Error().Err(err).Str("promptId", req.PromptID).Msg("pipeline: post-processing upload failed")
		p.patch(ctx, req.PromptID, status.StatusPatch{StepSlidePostprocessing: stepPtr(status.Failed)})
		p.Jobs.Fail(req.PromptID)
		return
	}

	p.patch(ctx, req.PromptID, status.StatusPatch{StepSlidePostprocessing: stepPtr(status.Done)})
	p.Jobs.FinishUpload(req.PromptID, result.WebURL, result.PDFURL)
}

func (p *Pipeline) narrate(ctx context.Context, req status.PromptRequest, script scriptResponse, slides []materializedSlide) {
	ctx, span := startSpan(ctx, "pipeline.narrate", req.PromptID)
	defer span.End()

	voice, err := p.Assets.VoiceSample(req.CourseID)
	if err != nil {
		log.Error().Err(err).Str("promptId", req.PromptID).Msg("pipeline: could not resolve course voice sample, skipping narration")
		return
	}
	sourceImage, err := p.Assets.SourceImage(req.CourseID)
	if err != nil {
		log.Error().Err(err).Str("promptId", req.PromptID).Msg("pipeline: could not resolve course source image, skipping narration")
		return
	}

	var history strings.Builder
	for i, slide := range slides {
		instruction := "Narrate this slide in one plain-text paragraph, continuing naturally from the prior narration."
		if i == 0 {
			instruction = "Narrate this opening slide as an introduction to the lecture, in one plain-text paragraph."
		}
		if i == len(slides)-1 {
			instruction = "Narrate this closing slide as a farewell to the audience, in one plain-text paragraph."
		}

		messages := []llm.Message{
			{Role: "system", Content: "You write spoken narration for one slide of a lecture video."},
			{Role: "user", Content: fmt.Sprintf(
				"Lecture script:\n%s\n\nNarration so far:\n%s\n\nSlide content:\n%s\n\n%s",
				script.Text, history.String(), slide.Content, instruction,
			)},
		}

		narration, err := p.LLM.Complete(ctx, p.SlidesGenModel, messages, 0.6, 512)
		if err != nil {
			log.Error().Err(err).Str("promptId", req.PromptID).Int("slide", i).Msg("pipeline: narration generation failed for slide, skipping its video")
			continue
		}
		history.WriteString(narration)
		history.WriteString("\n")

		p.SlideQueue.Enqueue(slideworker.Task{
			PromptID:      req.PromptID,
			SlideIndex:    i + 1,
			NarrationText: narration,
			VoiceSample:   voice,
			SourceImage:   sourceImage,
		})
	}
}

// GenerateSlideStructure runs phase 4 alone (slide structuring) against an
// already-produced lecture script, for callers that enter the pipeline
// downstream of phases 1-3 (the /v1/slides/generate surface). It returns
// once the structure is known; the caller is expected to follow up with
// ContinueSlideGeneration for phases 5-6 on its own goroutine.
func (p *Pipeline) GenerateSlideStructure(ctx context.Context, req status.PromptRequest, scriptText string, assets []status.LectureAsset) (status.SlideStructure, bool) {
	script := scriptResponse{Text: scriptText, Assets: assets}
	drafts, ok := p.structureSlides(ctx, req, script)
	if !ok {
		return status.SlideStructure{}, false
	}
	return status.SlideStructure{Pages: drafts}, true
}

// ContinueSlideGeneration runs phases 5-6 (materialization fan-out and
// post-processing upload) for a structure produced by GenerateSlideStructure.
// It is intended to run on a background task, not the HTTP response
// goroutine that accepted the /v1/slides/generate request.
func (p *Pipeline) ContinueSlideGeneration(ctx context.Context, req status.PromptRequest, drafts []status.SlideDraft, assets []status.LectureAsset) {
	materialized, _ := p.materializeSlides(ctx, req, drafts)
	p.postprocess(ctx, req, materialized, assets)
}

func (p *Pipeline) patch(ctx context.Context, promptID string, patch status.StatusPatch) {
	p.Status.Update(ctx, promptID, patch)
}

func stepPtr(s status.StepStatus) *status.StepStatus { return &s }

func personaSystemPrompt(persona status.Persona) string {
	var sb strings.Builder
	sb.WriteString("You are writing a lecture script for a ")
	sb.WriteString(string(persona.Role))
	sb.WriteString(" whose preferred language is ")
	sb.WriteString(string(persona.Language))
	sb.WriteString(".")
	if persona.Preferences.ExpertiseLevel != "" {
		sb.WriteString(" Calibrate technical depth to an expertise level of ")
		sb.WriteString(persona.Preferences.ExpertiseLevel)
		sb.WriteString(".")
	}
	if persona.Preferences.AnswerLength != "" {
		sb.WriteString(" Target answer length: ")
		sb.WriteString(persona.Preferences.AnswerLength)
		sb.WriteString(".")
	}
	return sb.String()
}
