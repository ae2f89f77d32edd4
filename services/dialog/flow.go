package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	businessRepo "reservo/database/repository/business"
	conversationRepo "reservo/database/repository/conversation"
	"reservo/models"
	"reservo/services/contextcache"
	"reservo/services/extractor"
	"reservo/services/nlu"
	"reservo/services/reservation"
)

// Engine runs the message loop: reference resolution, the detection cascade,
// slot extraction and merge, availability checks and the final commit.
type Engine struct {
	Businesses    businessRepo.BusinessRepository
	Conversations conversationRepo.ConversationRepository
	ContextCache  contextcache.Service
	ConfigCache   contextcache.Service
	Cascade       *nlu.Cascade
	Extractor     *extractor.Registry
	Validator     *reservation.Validator
	Committer     *reservation.Committer
	HistoryMax    int
	Clock         func() time.Time
	Logger        *zap.Logger
}

// turnOutcome is the internal result of one processed turn, before it is
// folded into the ChatReply.
type turnOutcome struct {
	text          string
	missing       []string
	paymentURL    string
	reservationID string
}

// ProcessMessage handles a single inbound message. It never fails on user
// input; internal faults degrade to an apology with the "other" intention.
func (e *Engine) ProcessMessage(ctx context.Context, req ChatRequest) (reply *ChatReply, err error) {
	convID := conversationID(req.UserID, req.BusinessID)

	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("message processing panicked",
				zap.String("conversationId", convID),
				zap.Any("cause", r))
			reply = &ChatReply{
				ConversationID: convID,
				Reply:          replyInternalTrouble,
				Intention:      models.IntentionOther,
				Stage:          string(models.StageIdle),
			}
			err = nil
		}
	}()

	biz, bizErr := e.loadBusiness(ctx, req.BusinessID)
	if bizErr != nil || biz == nil {
		if bizErr != nil {
			e.Logger.Warn("business lookup failed",
				zap.String("businessId", req.BusinessID),
				zap.Error(bizErr))
		}
		return &ChatReply{
			ConversationID: convID,
			Reply:          replyBusinessNotFound,
			Intention:      models.IntentionOther,
			Stage:          string(models.StageIdle),
		}, nil
	}

	state := e.loadState(ctx, req.UserID, req.BusinessID)

	result, outcome := e.respond(ctx, biz, state, req.Message)

	state.LastIntention = result.Intention
	state.AppendTurn("user", req.Message, e.HistoryMax)
	state.AppendTurn("assistant", outcome.text, e.HistoryMax)
	state.Metadata[models.MetaLastQuestion] = outcome.text
	e.saveState(ctx, state)

	return &ChatReply{
		ConversationID: convID,
		Reply:          outcome.text,
		Intention:      result.Intention,
		Confidence:     result.Confidence,
		MissingFields:  outcome.missing,
		Stage:          string(state.Stage),
		PaymentURL:     outcome.paymentURL,
		ReservationID:  outcome.reservationID,
	}, nil
}

// respond classifies the message and routes it by intention and stage.
func (e *Engine) respond(ctx context.Context, biz *models.Business, state *models.ConversationState, message string) (*models.DetectionResult, turnOutcome) {
	resolution := extractor.ResolveReferences(message, state)

	// A pending slot conflict is settled before anything else: "sí" applies
	// the new value, "no" keeps the old one.
	if pending := state.Metadata[models.MetaPendingConflict]; pending != "" {
		delete(state.Metadata, models.MetaPendingConflict)
		switch resolution.Type {
		case extractor.RefConfirmation:
			if field, value, ok := decodeConflict(pending); ok {
				var sv models.SlotValues
				sv.SetCanonical(field, value)
				state.Collected.ForceSet(field, sv)
			}
			result := &models.DetectionResult{Intention: models.IntentionReserve, Confidence: 1, Strategy: "reference"}
			return result, e.collect(ctx, biz, state, result, "")
		case extractor.RefNegation:
			result := &models.DetectionResult{Intention: models.IntentionReserve, Confidence: 1, Strategy: "reference"}
			return result, e.collect(ctx, biz, state, result, "")
		}
	}

	if resolution.Type == extractor.RefNegation {
		return e.abandon(biz, state)
	}

	// An explicit correction overwrites the slot without a confirmation
	// round trip: the user already said what they want changed.
	if resolution.Type == extractor.RefCorrection && state.Stage == models.StageCollecting {
		rc := extractor.RuleContext{Now: e.now(), Business: biz}
		corrected := e.Extractor.ExtractFromMessage(resolution.Rewritten, models.AllFields(), rc)
		for _, field := range models.AllFields() {
			if corrected.Present(field) {
				state.Collected.ForceSet(field, corrected)
			}
		}
		result := &models.DetectionResult{Intention: models.IntentionReserve, Confidence: 1, Strategy: "reference"}
		return result, e.collect(ctx, biz, state, result, "")
	}

	message = resolution.Rewritten
	result := e.Cascade.Detect(ctx, message, biz, state)

	// An open payment gate holds the conversation, but an explicit cancel
	// still breaks through and voids the provisional reservation.
	if state.Stage == models.StageAwaitingPayment {
		if result.Intention == models.IntentionCancel {
			_, outcome := e.abandon(biz, state)
			return result, outcome
		}
		url := ""
		if pending, err := e.Committer.Repo.GetPendingPayment(conversationID(state.UserID, state.BusinessID)); err == nil && pending != nil {
			url = pending.PaymentURL
		}
		return result, turnOutcome{text: awaitingPaymentReply(url), paymentURL: url, reservationID: state.PendingReservationID}
	}

	if !result.Actionable() {
		if result.Intention == models.IntentionOther && state.Stage == models.StageCollecting {
			// Mid-collection, a low-confidence message is most likely the
			// answer to our last question.
			return result, e.collect(ctx, biz, state, result, message)
		}
		return result, e.smallTalk(biz, state, result)
	}

	switch result.Intention {
	case models.IntentionCancel:
		return result, e.cancelActive(biz, state)

	case models.IntentionQuery:
		active, err := e.Committer.Repo.ActiveForUser(biz.ID, state.UserID)
		if err != nil {
			e.Logger.Warn("reservation lookup failed", zap.String("userId", state.UserID), zap.Error(err))
		}
		noun := reservation.Resolve(biz, "").ReservationNoun
		return result, turnOutcome{text: queryReply(noun, active)}

	case models.IntentionAvailability:
		rc := extractor.RuleContext{Now: e.now(), Business: biz}
		if t, ok := e.Extractor.ExtractField(models.FieldTime, message, rc); ok {
			check := e.Validator.CheckHours(biz, t)
			if check.IsAvailable {
				return result, turnOutcome{text: "Sí, a las " + t + " estamos abiertos. ¿Quieres hacer una reserva?"}
			}
			state.Metadata[models.MetaOfferedOptions] = offeredOptionsValue(check.Alternatives)
			return result, turnOutcome{text: outOfHoursReply(t, check.Alternatives)}
		}
		return result, turnOutcome{text: hoursReply(biz)}

	default:
		return result, e.collect(ctx, biz, state, result, message)
	}
}

// smallTalk answers greetings, farewells and out-of-scope messages. A
// farewell, or a greeting outside an active collection, resets the dialogue;
// a greeting mid-collection re-prompts the open question instead, since a
// stray "hola" is a ping rather than a fresh conversation.
func (e *Engine) smallTalk(biz *models.Business, state *models.ConversationState, result *models.DetectionResult) turnOutcome {
	switch result.Intention {
	case models.IntentionGreeting:
		if state.Stage == models.StageCollecting {
			return turnOutcome{text: "¡Hola! " + state.Metadata[models.MetaLastQuestion]}
		}
		if NextStage(state.Stage, result.Intention, &state.Collected, nil, false) == models.StageIdle {
			state.Reset()
		}
		return turnOutcome{text: greetingReply(biz)}

	case models.IntentionFarewell:
		if NextStage(state.Stage, result.Intention, &state.Collected, nil, false) == models.StageIdle {
			state.Reset()
		}
		return turnOutcome{text: replyFarewell}
	}

	if result.SuggestedReply != "" {
		return turnOutcome{text: result.SuggestedReply}
	}
	return turnOutcome{text: replyNotUnderstood}
}

// collect advances the slot-filling state machine by one turn and commits
// when everything required is present and valid.
func (e *Engine) collect(ctx context.Context, biz *models.Business, state *models.ConversationState, result *models.DetectionResult, message string) turnOutcome {
	rc := extractor.RuleContext{Now: e.now(), Business: biz}

	extracted := result.Extracted
	reservation.CorrectSlots(biz, &extracted)
	if message != "" {
		// Semantic extraction wins over rules on overlap.
		ruleValues := e.Extractor.ExtractFromMessage(message, models.AllFields(), rc)
		extracted.MergeNew(ruleValues)
		reservation.CorrectSlots(biz, &extracted)
	}

	// A completed conversation starts over when the user brings new details;
	// a bare re-confirmation replays the existing outcome.
	if state.Stage == models.StageCompleted {
		if !hasAnyField(extracted) {
			return e.replayCompleted(biz, state)
		}
		state.Reset()
	}

	conflicts := state.Collected.MergeNew(extracted)
	if len(conflicts) > 0 {
		c := conflicts[0]
		state.Stage = models.StageCollecting
		state.Metadata[models.MetaPendingConflict] = encodeConflict(c.Field, extracted)
		return turnOutcome{text: conflictReply(c.Field, c.Old, c.New)}
	}

	res := reservation.Resolve(biz, state.Collected.Service)
	if res.Ambiguous {
		state.Stage = models.StageCollecting
		var names []string
		for _, svc := range biz.Config.Services {
			names = append(names, svc.DisplayName)
		}
		state.Metadata[models.MetaOfferedOptions] = offeredOptionsValue(names)
		return turnOutcome{text: askOneReply(biz, models.FieldService), missing: []string{models.FieldService}}
	}
	if state.Collected.Service == "" {
		state.Collected.Service = res.Service.Key
	}

	missing := reservation.MissingFields(res.RequiredFields, &state.Collected)
	if len(missing) > 0 {
		backfill := e.Extractor.ExtractFromHistory(state.History, missing, rc)
		state.Collected.MergeNew(backfill)
		missing = reservation.MissingFields(res.RequiredFields, &state.Collected)
	}

	if len(missing) > 0 {
		state.Stage = NextStage(state.Stage, result.Intention, &state.Collected, res.RequiredFields, res.Service.RequiresPayment)
		if state.Metadata[models.MetaAskedAllFields] == "" {
			state.Metadata[models.MetaAskedAllFields] = "1"
			return turnOutcome{text: askAllReply(res.ReservationNoun, missing), missing: missing}
		}
		e.rememberOptions(biz, state, missing[0])
		return turnOutcome{text: askOneReply(biz, missing[0]), missing: missing}
	}

	return e.validateAndCommit(ctx, biz, state, res)
}

// validateAndCommit runs catalog, hours and table checks, then persists.
func (e *Engine) validateAndCommit(ctx context.Context, biz *models.Business, state *models.ConversationState, res reservation.Resolution) turnOutcome {
	var note string

	if len(state.Collected.Products) > 0 {
		valid, issues := e.Validator.ValidateProducts(biz, state.Collected.Products)
		if len(issues) > 0 {
			var names []string
			for _, issue := range issues {
				names = append(names, issue.ProductID)
			}
			if len(valid) == 0 && res.Service.RequiresProduct {
				state.Collected.Products = nil
				state.Stage = models.StageCollecting
				state.Metadata[models.MetaInvalidProducts] = offeredOptionsValue(names)
				return turnOutcome{
					text:    invalidProductsReply(biz, names) + " " + fieldQuestions[models.FieldProducts],
					missing: []string{models.FieldProducts},
				}
			}
			note = invalidProductsReply(biz, names) + " "
		}
		state.Collected.Products = valid
	}

	hours := e.Validator.CheckHours(biz, state.Collected.Time)
	if !hours.IsAvailable {
		requested := state.Collected.Time
		state.Collected.Time = ""
		state.Stage = models.StageCollecting
		state.Metadata[models.MetaOfferedOptions] = offeredOptionsValue(hours.Alternatives)
		return turnOutcome{text: outOfHoursReply(requested, hours.Alternatives), missing: []string{models.FieldTime}}
	}

	if res.Service.RequiresTable {
		tableID, check := e.Validator.AssignTable(biz, state.Collected.Date, state.Collected.Time, state.Collected.TableID, state.Collected.Guests)
		if !check.IsAvailable {
			state.Collected.TableID = ""
			state.Stage = models.StageCollecting
			state.Metadata[models.MetaOfferedOptions] = offeredOptionsValue(check.Alternatives)
			return turnOutcome{text: noTableReply(check.Alternatives), missing: []string{models.FieldTable}}
		}
		state.Collected.TableID = tableID
	}

	commit, err := e.Committer.Commit(biz, state, res.Service)
	if err != nil {
		e.Logger.Error("commit failed",
			zap.String("businessId", biz.ID),
			zap.String("userId", state.UserID),
			zap.Error(err))
		state.Stage = models.StageCollecting
		return turnOutcome{text: replyInternalTrouble}
	}

	state.PendingReservationID = commit.Reservation.ID
	delete(state.Metadata, models.MetaAskedAllFields)
	delete(state.Metadata, models.MetaOfferedOptions)

	state.Stage = NextStage(state.Stage, models.IntentionReserve, &state.Collected, res.RequiredFields, commit.RequiresPayment)
	if commit.RequiresPayment {
		return turnOutcome{
			text:          note + paymentReply(res.ReservationNoun, commit.PaymentURL),
			paymentURL:    commit.PaymentURL,
			reservationID: commit.Reservation.ID,
		}
	}

	return turnOutcome{
		text:          note + confirmationReply(biz, res.ReservationNoun, commit.Reservation),
		reservationID: commit.Reservation.ID,
	}
}

// abandon drops the in-flight request, cancelling a payment-gated
// provisional reservation if one exists.
func (e *Engine) abandon(biz *models.Business, state *models.ConversationState) (*models.DetectionResult, turnOutcome) {
	result := &models.DetectionResult{Intention: models.IntentionCancel, Confidence: 1, Strategy: "reference"}
	if state.Stage == models.StageIdle {
		return &models.DetectionResult{Intention: models.IntentionOther, Strategy: "reference"},
			turnOutcome{text: replyNotUnderstood}
	}
	if state.Stage == models.StageAwaitingPayment && state.PendingReservationID != "" {
		if err := e.Committer.Cancel(biz, state.PendingReservationID); err != nil {
			e.Logger.Warn("provisional cancellation failed",
				zap.String("reservationId", state.PendingReservationID),
				zap.Error(err))
		}
	}
	state.Reset()
	return result, turnOutcome{text: replyFlowAbandoned}
}

// cancelActive voids the user's most recent active reservation.
func (e *Engine) cancelActive(biz *models.Business, state *models.ConversationState) turnOutcome {
	noun := reservation.Resolve(biz, "").ReservationNoun

	// Cancelling mid-collection abandons the unfinished request.
	if state.Stage == models.StageCollecting {
		state.Reset()
		return turnOutcome{text: replyFlowAbandoned}
	}

	active, err := e.Committer.Repo.ActiveForUser(biz.ID, state.UserID)
	if err != nil {
		e.Logger.Warn("reservation lookup failed", zap.String("userId", state.UserID), zap.Error(err))
		return turnOutcome{text: replyInternalTrouble}
	}
	if len(active) == 0 {
		return turnOutcome{text: replyNothingToCancel}
	}
	target := active[len(active)-1]
	if err := e.Committer.Cancel(biz, target.ID); err != nil {
		e.Logger.Error("cancellation failed", zap.String("reservationId", target.ID), zap.Error(err))
		return turnOutcome{text: replyInternalTrouble}
	}
	state.Reset()
	return turnOutcome{text: fmt.Sprintf(replyCancelled, noun), reservationID: target.ID}
}

// replayCompleted re-emits the outcome of an already committed conversation.
func (e *Engine) replayCompleted(biz *models.Business, state *models.ConversationState) turnOutcome {
	noun := reservation.Resolve(biz, state.Collected.Service).ReservationNoun
	if state.PendingReservationID != "" {
		if existing, err := e.Committer.Repo.GetByID(state.PendingReservationID); err == nil && existing != nil {
			return turnOutcome{
				text:          confirmationReply(biz, noun, existing),
				reservationID: existing.ID,
			}
		}
	}
	return turnOutcome{text: queryReply(noun, nil)}
}

// ConfirmPayment resolves an awaiting-payment conversation after the payment
// provider reports the result.
func (e *Engine) ConfirmPayment(ctx context.Context, convID string, success bool) (*ChatReply, error) {
	userID, businessID, ok := splitConversationID(convID)
	if !ok {
		return nil, fmt.Errorf("malformed conversation id %q", convID)
	}
	biz, err := e.loadBusiness(ctx, businessID)
	if err != nil || biz == nil {
		return nil, fmt.Errorf("business %s not found", businessID)
	}

	res, err := e.Committer.ConfirmPendingPayment(biz, convID, success)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("no pending payment for conversation %s", convID)
	}

	state := e.loadState(ctx, userID, businessID)
	noun := reservation.Resolve(biz, res.ServiceKey).ReservationNoun

	var text string
	if success {
		state.Stage = models.StageCompleted
		state.PendingReservationID = res.ID
		text = "¡Pago recibido! " + confirmationReply(biz, noun, res)
	} else {
		state.Reset()
		text = "El pago no se completó y tu " + noun + " fue cancelada. Escríbenos si quieres intentarlo de nuevo."
	}
	e.saveState(ctx, state)

	// The system-generated turn goes through the capped push so a concurrent
	// message does not lose it.
	turn := models.Turn{Role: "assistant", Text: text, Timestamp: e.now()}
	if err := e.Conversations.AppendTurn(userID, businessID, turn, e.HistoryMax); err != nil {
		e.Logger.Warn("turn append failed", zap.String("conversationId", convID), zap.Error(err))
	}

	return &ChatReply{
		ConversationID: convID,
		Reply:          text,
		Intention:      models.IntentionReserve,
		Confidence:     1,
		Stage:          string(state.Stage),
		ReservationID:  res.ID,
	}, nil
}

// loadBusiness reads the business through the config cache.
func (e *Engine) loadBusiness(ctx context.Context, businessID string) (*models.Business, error) {
	raw, err := e.ConfigCache.GetOrLoad(ctx, "biz:"+businessID, func() ([]byte, error) {
		biz, err := e.Businesses.GetByID(businessID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(biz)
	})
	if err != nil {
		return nil, err
	}
	var biz models.Business
	if err := json.Unmarshal(raw, &biz); err != nil {
		return nil, err
	}
	return &biz, nil
}

// loadState reads the conversation through the context cache with a durable
// fallback; a broken cache entry or store never blocks the conversation.
func (e *Engine) loadState(ctx context.Context, userID, businessID string) *models.ConversationState {
	key := conversationID(userID, businessID)
	if raw, ok := e.ContextCache.Get(ctx, key); ok {
		var state models.ConversationState
		if err := json.Unmarshal(raw, &state); err == nil {
			if state.Metadata == nil {
				state.Metadata = map[string]string{}
			}
			return &state
		}
		e.ContextCache.Invalidate(ctx, key)
	}
	state, err := e.Conversations.GetContext(userID, businessID)
	if err != nil {
		e.Logger.Warn("context load failed, starting fresh",
			zap.String("conversationId", key),
			zap.Error(err))
		return models.NewConversationState(userID, businessID)
	}
	return state
}

func (e *Engine) saveState(ctx context.Context, state *models.ConversationState) {
	key := conversationID(state.UserID, state.BusinessID)
	state.UpdatedAt = e.now()

	// The cached copy is dropped before the durable write so a concurrent
	// reader falls back to the store instead of a stale entry.
	e.ContextCache.Invalidate(ctx, key)
	if err := e.Conversations.SaveContext(state); err != nil {
		e.Logger.Error("context save failed",
			zap.String("userId", state.UserID),
			zap.String("businessId", state.BusinessID),
			zap.Error(err))
	}
	if raw, err := json.Marshal(state); err == nil {
		e.ContextCache.Set(ctx, key, raw)
	}
}

func (e *Engine) rememberOptions(biz *models.Business, state *models.ConversationState, field string) {
	var names []string
	switch field {
	case models.FieldService:
		for _, svc := range biz.Config.Services {
			names = append(names, svc.DisplayName)
		}
	case models.FieldProducts:
		for _, p := range biz.Config.Products {
			if p.Available {
				names = append(names, p.Name)
			}
		}
	case models.FieldTable:
		for _, t := range biz.Config.Tables {
			names = append(names, t.Name)
		}
	default:
		return
	}
	state.Metadata[models.MetaOfferedOptions] = offeredOptionsValue(names)
}

func hasAnyField(sv models.SlotValues) bool {
	for _, field := range models.AllFields() {
		if sv.Present(field) {
			return true
		}
	}
	return false
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}
