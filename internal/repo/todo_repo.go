package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/store"
)

// TodoRepository is the write path for todos. Constructing it registers
// the todo reducers with the projection.
type TodoRepository struct {
	log      store.EventLog
	proj     *projection.Projection
	nudger   Nudger
	deviceID string
}

// NewTodoRepository creates the repository and registers its reducers.
func NewTodoRepository(
	log store.EventLog,
	proj *projection.Projection,
	nudger Nudger,
	deviceID string,
) *TodoRepository {
	proj.Register(model.EventTodoCreated, reduceTodoCreated)
	proj.Register(model.EventTodoUpdated, reduceTodoUpdated)
	proj.Register(model.EventTodoCompleted, reduceTodoCompleted)
	proj.Register(model.EventTodoDeleted, reduceTodoDeleted)

	return &TodoRepository{
		log:      log,
		proj:     proj,
		nudger:   nudger,
		deviceID: deviceID,
	}
}

// Add records a new todo and returns it as it now appears locally.
// The todo's id is locally minted; the sync engine later binds it to a
// remote id through the entity map.
func (r *TodoRepository) Add(
	ctx context.Context,
	payload model.TodoCreatedPayload,
) (model.Todo, error) {
	if strings.TrimSpace(payload.Title) == "" {
		return model.Todo{}, fmt.Errorf("todo title must not be empty")
	}
	if payload.Priority == "" {
		payload.Priority = model.PriorityMedium
	}

	localID := uuid.New().String()
	ev := model.NewEvent(
		model.EntityTodo, localID, model.EventTodoCreated,
		&payload, r.deviceID,
	)

	if err := write(ctx, r.log, r.proj, r.nudger, ev); err != nil {
		return model.Todo{}, err
	}

	todo, _ := r.proj.Todo(localID)
	return todo, nil
}

// Update records a partial update for id. An empty patch is a no-op.
func (r *TodoRepository) Update(
	ctx context.Context,
	id string,
	patch model.TodoPatch,
) error {
	if patch.IsEmpty() {
		return nil
	}

	ev := model.NewEvent(
		model.EntityTodo, id, model.EventTodoUpdated,
		&patch, r.deviceID,
	)
	return write(ctx, r.log, r.proj, r.nudger, ev)
}

// Complete marks the todo done.
func (r *TodoRepository) Complete(ctx context.Context, id string) error {
	p := &model.TodoCompletedPayload{}
	ev := model.NewEvent(model.EntityTodo, id, model.EventTodoCompleted, p, r.deviceID)
	p.CompletedAt = ev.Timestamp
	return write(ctx, r.log, r.proj, r.nudger, ev)
}

// Delete removes the todo locally and queues the remote archive.
func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	ev := model.NewEvent(
		model.EntityTodo, id, model.EventTodoDeleted,
		&model.TodoDeletedPayload{}, r.deviceID,
	)
	return write(ctx, r.log, r.proj, r.nudger, ev)
}

// Get returns the todo stored under id.
func (r *TodoRepository) Get(id string) (model.Todo, bool) {
	return r.proj.Todo(id)
}

// ListOpen returns all not-yet-completed todos ordered by creation time.
func (r *TodoRepository) ListOpen() []model.Todo {
	todos := r.proj.Todos()
	open := todos[:0]
	for _, t := range todos {
		if t.IsOpen() {
			open = append(open, t)
		}
	}
	sortTodos(open)
	return open
}

// ListAll returns every todo ordered by creation time.
func (r *TodoRepository) ListAll() []model.Todo {
	todos := r.proj.Todos()
	sortTodos(todos)
	return todos
}

func sortTodos(todos []model.Todo) {
	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.Before(todos[j].CreatedAt)
		}
		return todos[i].ID < todos[j].ID
	})
}

// reduceTodoCreated inserts a new todo under the event's entity id.
// An already-present key is left alone; duplicate creates cannot occur
// by construction but must not clobber state when replayed.
func reduceTodoCreated(st *projection.State, ev model.Event) {
	p, ok := ev.Payload.(*model.TodoCreatedPayload)
	if !ok {
		return
	}
	if _, exists := st.Todos[ev.EntityID]; exists {
		return
	}
	st.Todos[ev.EntityID] = model.Todo{
		ID:        ev.EntityID,
		Title:     p.Title,
		Notes:     p.Notes,
		Status:    model.TodoStatusOpen,
		Priority:  p.Priority,
		Category:  p.Category,
		DueDate:   p.DueDate,
		CreatedAt: ev.Timestamp,
		UpdatedAt: ev.Timestamp,
	}
}

// reduceTodoUpdated merges a partial patch onto the existing todo.
// An event for an unknown entity is dropped: the target was deleted or
// superseded and the update no longer matters.
func reduceTodoUpdated(st *projection.State, ev model.Event) {
	p, ok := ev.Payload.(*model.TodoPatch)
	if !ok {
		return
	}
	todo, exists := st.Todos[ev.EntityID]
	if !exists {
		return
	}
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.Notes != nil {
		todo.Notes = *p.Notes
	}
	if p.Priority != nil {
		todo.Priority = *p.Priority
	}
	if p.Category != nil {
		todo.Category = *p.Category
	}
	if p.DueDate != nil {
		todo.DueDate = p.DueDate
	}
	todo.UpdatedAt = ev.Timestamp
	st.Todos[ev.EntityID] = todo
}

// reduceTodoCompleted sets the terminal done status, preserving every
// other field. No-op when the entity is missing.
func reduceTodoCompleted(st *projection.State, ev model.Event) {
	todo, exists := st.Todos[ev.EntityID]
	if !exists {
		return
	}
	todo.Status = model.TodoStatusDone
	todo.UpdatedAt = ev.Timestamp
	st.Todos[ev.EntityID] = todo
}

// reduceTodoDeleted removes the entity.
func reduceTodoDeleted(st *projection.State, ev model.Event) {
	delete(st.Todos, ev.EntityID)
}
