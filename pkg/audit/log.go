package audit

import (
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentforge/agentforge/pkg/errorkind"
	"github.com/agentforge/agentforge/pkg/executor"
	"github.com/agentforge/agentforge/pkg/store"
)

// Log is the C11 service: it appends pipeline-level Events to a task's
// actions.log (the executor appends its own StepRecords to the same
// stream) and answers timeline queries over the merged result, in the
// service-layer idiom of pkg/services/timeline_service.go's
// CreateTimelineEvent/GetSessionTimeline/GetStageTimeline/GetAgentTimeline.
type Log struct {
	store *store.Store
}

// NewLog constructs a Log over store s.
func NewLog(s *store.Store) *Log {
	return &Log{store: s}
}

// RecordInput is the data needed to append one pipeline-level event.
type RecordInput struct {
	TaskID       string
	Kind         EventKind
	Stage        string
	Agent        string
	Actor        string
	Detail       string
	ArtifactHash string
	EscalationID string
	Outcome      string
}

// Record appends one pipeline-level event to taskID's actions.log.
func (l *Log) Record(in RecordInput) (Event, error) {
	if in.TaskID == "" {
		return Event{}, errorkind.New(errorkind.InvalidInput, "audit: task id is required")
	}
	if in.Kind == "" {
		return Event{}, errorkind.New(errorkind.InvalidInput, "audit: event kind is required")
	}
	actor := in.Actor
	if actor == "" {
		actor = "system"
	}
	ev := &Event{
		SchemaVersion: eventSchemaVersion,
		EventKind:     in.Kind,
		TaskID:        in.TaskID,
		Stage:         in.Stage,
		Agent:         in.Agent,
		Actor:         actor,
		Timestamp:     time.Now().UTC(),
		Detail:        in.Detail,
		ArtifactHash:  in.ArtifactHash,
		EscalationID:  in.EscalationID,
		Outcome:       in.Outcome,
	}
	if _, err := l.store.AppendStep(in.TaskID, ev); err != nil {
		return Event{}, err
	}
	return *ev, nil
}

// StageTransition records a StageStatus change, per spec.md §4.11's
// stage_transition category.
func (l *Log) StageTransition(taskID, stage string, to store.StageStatus) (Event, error) {
	return l.Record(RecordInput{TaskID: taskID, Kind: EventStageTransition, Stage: stage, Detail: string(to)})
}

// IterationPresented records an iteration's artifact being handed to a
// reviewer or a human for a decision.
func (l *Log) IterationPresented(taskID, stage, agent, artifactHash string) (Event, error) {
	return l.Record(RecordInput{TaskID: taskID, Kind: EventIterationPresented, Stage: stage, Agent: agent, ArtifactHash: artifactHash})
}

// UserDecision records a human's resolution of a suspended stage.
func (l *Log) UserDecision(taskID, stage, decision string) (Event, error) {
	return l.Record(RecordInput{TaskID: taskID, Kind: EventUserDecision, Stage: stage, Actor: "human", Outcome: decision})
}

// ExternalArtifactImported records AdmitExternalArtifact/ImportArtifact
// accepting a user-supplied artifact.
func (l *Log) ExternalArtifactImported(taskID, stage, artifactHash string) (Event, error) {
	return l.Record(RecordInput{TaskID: taskID, Kind: EventExternalArtifactImported, Stage: stage, Actor: "human", ArtifactHash: artifactHash})
}

// ReviewVerdictRecorded records one reviewer's verdict on a stage's
// artifact.
func (l *Log) ReviewVerdictRecorded(taskID, stage, reviewerRole, mode string, blockingCount int) (Event, error) {
	detail := mode
	if blockingCount > 0 {
		detail = mode + ": blocking issues raised"
	}
	return l.Record(RecordInput{TaskID: taskID, Kind: EventReviewVerdict, Stage: stage, Agent: reviewerRole, Detail: detail})
}

// PipelineExit records the controller's terminal Outcome for a task.
func (l *Log) PipelineExit(taskID, stage, outcome, detail string) (Event, error) {
	return l.Record(RecordInput{TaskID: taskID, Kind: EventPipelineExit, Stage: stage, Outcome: outcome, Detail: detail})
}

// Timeline returns every entry recorded for taskID, in append order.
func (l *Log) Timeline(taskID string) ([]Entry, error) {
	docs, err := l.store.ReadStepDocs(taskID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entry, err := decodeEntry(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StageTimeline returns taskID's timeline filtered to one stage, per
// pkg/services/timeline_service.go's GetStageTimeline.
func (l *Log) StageTimeline(taskID, stage string) ([]Entry, error) {
	all, err := l.Timeline(taskID)
	if err != nil {
		return nil, err
	}
	return filterEntries(all, func(e Entry) bool { return e.Stage() == stage }), nil
}

// AgentTimeline returns taskID's timeline filtered to one acting agent
// role, per pkg/services/timeline_service.go's GetAgentTimeline.
func (l *Log) AgentTimeline(taskID, agentRole string) ([]Entry, error) {
	all, err := l.Timeline(taskID)
	if err != nil {
		return nil, err
	}
	return filterEntries(all, func(e Entry) bool { return e.Agent() == agentRole }), nil
}

func filterEntries(all []Entry, keep func(Entry) bool) []Entry {
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

func decodeEntry(doc []byte) (Entry, error) {
	var env envelope
	if err := yaml.Unmarshal(doc, &env); err != nil {
		return Entry{}, errorkind.Wrap(errorkind.StateCorrupted, "actions.log entry unreadable", err)
	}
	if env.EventKind != "" {
		var ev Event
		if err := yaml.Unmarshal(doc, &ev); err != nil {
			return Entry{}, errorkind.Wrap(errorkind.StateCorrupted, "actions.log event unreadable", err)
		}
		return Entry{Event: &ev}, nil
	}
	var rec executor.StepRecord
	if err := yaml.Unmarshal(doc, &rec); err != nil {
		return Entry{}, errorkind.Wrap(errorkind.StateCorrupted, "actions.log step unreadable", err)
	}
	return Entry{Step: &rec}, nil
}
