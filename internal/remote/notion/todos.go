package notion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/daybook/internal/model"
)

// Todo database property names.
const (
	propTodoTitle    = "Name"
	propTodoStatus   = "Status"
	propTodoPriority = "Priority"
	propTodoCategory = "Category"
	propTodoDue      = "Due"
	propTodoNotes    = "Notes"
)

// Status and priority select option names used remotely.
var (
	statusNames = map[string]string{
		model.TodoStatusOpen: "Open",
		model.TodoStatusDone: "Done",
	}
	priorityNames = map[model.Priority]string{
		model.PriorityLow:    "Low",
		model.PriorityMedium: "Medium",
		model.PriorityHigh:   "High",
	}
)

// TodoDatabase implements remote.TodoService against one database of
// the hosted page service.
type TodoDatabase struct {
	client     *Client
	databaseID string
}

// NewTodoDatabase creates the todo adapter for the given database.
func NewTodoDatabase(client *Client, databaseID string) *TodoDatabase {
	return &TodoDatabase{client: client, databaseID: databaseID}
}

// Add creates the todo as a new page and returns the page id.
func (d *TodoDatabase) Add(
	ctx context.Context,
	p model.TodoCreatedPayload,
) (string, error) {
	props := map[string]Property{
		propTodoTitle:  titleProp(p.Title),
		propTodoStatus: selectProp(statusNames[model.TodoStatusOpen]),
		propTodoNotes:  textProp(p.Notes),
	}
	if name, ok := priorityNames[p.Priority]; ok {
		props[propTodoPriority] = selectProp(name)
	}
	if p.Category != "" {
		props[propTodoCategory] = selectProp(p.Category)
	}
	if p.DueDate != nil {
		props[propTodoDue] = dateProp(p.DueDate.Format(model.LogDateFormat))
	}

	var page Page
	err := d.client.Post(ctx, "/v1/pages", CreatePageRequest{
		Parent:     ParentRef{DatabaseID: d.databaseID},
		Properties: props,
	}, &page)
	if err != nil {
		return "", fmt.Errorf("creating remote todo: %w", err)
	}
	return page.ID, nil
}

// Update patches only the properties present in the patch.
func (d *TodoDatabase) Update(
	ctx context.Context,
	remoteID string,
	patch model.TodoPatch,
) error {
	props := make(map[string]Property)
	if patch.Title != nil {
		props[propTodoTitle] = titleProp(*patch.Title)
	}
	if patch.Notes != nil {
		props[propTodoNotes] = textProp(*patch.Notes)
	}
	if patch.Priority != nil {
		if name, ok := priorityNames[*patch.Priority]; ok {
			props[propTodoPriority] = selectProp(name)
		}
	}
	if patch.Category != nil {
		props[propTodoCategory] = selectProp(*patch.Category)
	}
	if patch.DueDate != nil {
		props[propTodoDue] = dateProp(patch.DueDate.Format(model.LogDateFormat))
	}
	if len(props) == 0 {
		return nil
	}

	err := d.client.Patch(ctx, "/v1/pages/"+remoteID,
		UpdatePageRequest{Properties: props}, nil)
	if err != nil {
		return fmt.Errorf("updating remote todo %s: %w", remoteID, err)
	}
	return nil
}

// Complete sets the remote status to done.
func (d *TodoDatabase) Complete(ctx context.Context, remoteID string) error {
	err := d.client.Patch(ctx, "/v1/pages/"+remoteID, UpdatePageRequest{
		Properties: map[string]Property{
			propTodoStatus: selectProp(statusNames[model.TodoStatusDone]),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("completing remote todo %s: %w", remoteID, err)
	}
	return nil
}

// Delete archives the page. The service has no hard delete.
func (d *TodoDatabase) Delete(ctx context.Context, remoteID string) error {
	archived := true
	err := d.client.Patch(ctx, "/v1/pages/"+remoteID,
		UpdatePageRequest{Archived: &archived}, nil)
	if err != nil {
		return fmt.Errorf("archiving remote todo %s: %w", remoteID, err)
	}
	return nil
}

// LastEdited returns the page's last-edited time. A missing page yields
// the zero time with no error; unknown state must not look like a
// conflict.
func (d *TodoDatabase) LastEdited(
	ctx context.Context,
	remoteID string,
) (time.Time, error) {
	return lastEdited(ctx, d.client, remoteID)
}

// List fetches every non-archived todo in the database, following the
// query cursor until exhausted.
func (d *TodoDatabase) List(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo

	cursor := ""
	for {
		var resp QueryResponse
		err := d.client.Post(ctx,
			"/v1/databases/"+d.databaseID+"/query",
			QueryRequest{StartCursor: cursor, PageSize: 100},
			&resp,
		)
		if err != nil {
			return nil, fmt.Errorf("querying todo database: %w", err)
		}

		for _, page := range resp.Results {
			if page.Archived {
				continue
			}
			todos = append(todos, pageToTodo(page))
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return todos, nil
}

// pageToTodo maps a page's properties to the local todo shape, keyed by
// the remote page id.
func pageToTodo(page Page) model.Todo {
	todo := model.Todo{
		ID:        page.ID,
		Status:    model.TodoStatusOpen,
		Priority:  model.PriorityMedium,
		CreatedAt: page.CreatedTime,
		UpdatedAt: page.LastEditedTime,
	}

	for name, prop := range page.Properties {
		switch name {
		case propTodoTitle:
			todo.Title = plainText(prop.Title)
		case propTodoNotes:
			todo.Notes = plainText(prop.RichText)
		case propTodoStatus:
			if prop.Select != nil {
				todo.Status = selectKey(statusNames, prop.Select.Name, model.TodoStatusOpen)
			}
		case propTodoPriority:
			if prop.Select != nil {
				todo.Priority = selectKey(priorityNames, prop.Select.Name, model.PriorityMedium)
			}
		case propTodoCategory:
			if prop.Select != nil {
				todo.Category = prop.Select.Name
			}
		case propTodoDue:
			if prop.Date != nil {
				if t, err := time.Parse(model.LogDateFormat, prop.Date.Start); err == nil {
					todo.DueDate = &t
				}
			}
		}
	}

	return todo
}

// selectKey reverse-maps a remote option name to its local value.
func selectKey[K ~string](names map[K]string, option string, fallback K) K {
	for key, name := range names {
		if name == option {
			return key
		}
	}
	return fallback
}

// lastEdited fetches a page and returns its last-edited time, treating
// a missing page as "no timestamp available".
func lastEdited(ctx context.Context, c *Client, remoteID string) (time.Time, error) {
	var page Page
	if err := c.Get(ctx, "/v1/pages/"+remoteID, &page); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("fetching page %s: %w", remoteID, err)
	}
	return page.LastEditedTime, nil
}
