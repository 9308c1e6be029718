package generate

import "fmt"

// Task selects a generation template
type Task string

const (
	TaskEmail   Task = "email"
	TaskSummary Task = "summary"
	TaskAgenda  Task = "agenda"
)

const groundingInstruction = "You are a writing assistant for a sales coach. " +
	"Use ONLY the numbered facts provided. Do not invent facts or add information " +
	"that is not in the fact list. Cite every fact you use inline with its id, " +
	"e.g. [F1]. End your answer with a line \"Facts used: \" followed by the " +
	"comma-separated ids you cited. If the facts are insufficient for the task, " +
	"respond with exactly: Not enough evidence."

const stricterInstruction = groundingInstruction + " Your previous attempt " +
	"referenced content outside the fact list; this time every sentence must " +
	"cite at least one fact id and nothing outside the list may appear."

// taskSpec carries the per-task prompt shape and output budget
type taskSpec struct {
	userPrompt string
	maxTokens  int
}

var taskSpecs = map[Task]taskSpec{
	TaskEmail: {
		userPrompt: "Write a brief, professional follow-up email draft (2-4 sentences) for this client.",
		maxTokens:  250,
	},
	TaskSummary: {
		userPrompt: "Write a short bullet-point strategy summary for the coach: traits, drivers, risks, and how to approach this client.",
		maxTokens:  350,
	},
	TaskAgenda: {
		userPrompt: "Write a 20-minute call agenda with timeboxes (e.g. 0-5 min: X).",
		maxTokens:  250,
	},
}

// specFor resolves a task, falling back to the summary template for
// unknown task names
func specFor(task Task) taskSpec {
	if s, ok := taskSpecs[task]; ok {
		return s
	}
	return taskSpecs[TaskSummary]
}

func buildUserPrompt(task Task, pack *Pack) string {
	return fmt.Sprintf("Facts:\n%s\n\n%s Use only the facts above.", pack.Render(), specFor(task).userPrompt)
}
