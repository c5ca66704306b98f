package agent

import (
	"fmt"
	"maps"
	"strings"

	"github.com/fwojciec/converse"
)

// Rule turns the outcome of a named tool into conversation entries. Rules
// only see OutcomeSuccess, OutcomeToolError and OutcomeEmpty; transport and
// validation failures are narrated uniformly before any rule runs.
type Rule func(name string, o converse.Outcome) []converse.Entry

const (
	resultPrefix      = "Tool result: "
	emptyResult       = "Tool executed successfully."
	unknownToolError  = "Unknown error."
	validationNotice  = "That tool call was rejected before it ran. Please call one of the available tools with arguments that match its parameter schema."
	imageNotFound     = "No image found. Proceeding without image."
	imageCorrective   = "The image search was unsuccessful. Please create the post without an image and call createPost with it."
	duplicatePost     = "It seems I've already posted that tweet before. Would you like me to try a different version?"
	duplicateMarker   = "duplicate content"
	analyticsMissing  = "Tweet analytics could not be fetched. The tweet ID might be invalid or missing access permissions."
	analyticsRetry    = "The analytics could not be fetched. If possible, retry with a valid tweet ID or check API access level."
	fileOpFailed      = "File operation failed. Please check if the filename, type, or content was missing or invalid."
	fileOpRetry       = "Please retry with a valid filename, type (like txt, js), and if writing, make sure to include content."
	transportTemplate = "MCP tool execution failed: %s"
	errorTemplate     = "An error occurred while calling %s: %s"
)

// Interpreter maps tool outcomes to conversation entries using a table of
// per-tool rules. Tools without a row use DefaultRule.
type Interpreter struct {
	rules map[string]Rule
}

// NewInterpreter returns an interpreter with no per-tool rows.
func NewInterpreter() *Interpreter {
	return &Interpreter{rules: make(map[string]Rule)}
}

// DefaultInterpreter returns an interpreter with rows for the social-media
// and file tools.
func DefaultInterpreter() *Interpreter {
	return NewInterpreter().
		With("findImage", FindImageRule).
		With("createPost", CreatePostRule).
		With("getTweetAnalytics", TweetAnalyticsRule).
		With("createReadWriteFile", ReadWriteFileRule)
}

// With returns a copy of the interpreter with r installed for name.
func (i *Interpreter) With(name string, r Rule) *Interpreter {
	rules := maps.Clone(i.rules)
	if rules == nil {
		rules = make(map[string]Rule)
	}
	rules[name] = r
	return &Interpreter{rules: rules}
}

// Interpret returns the entries to append for the outcome of name.
func (i *Interpreter) Interpret(name string, o converse.Outcome) []converse.Entry {
	switch o.Kind {
	case converse.OutcomeTransport:
		return []converse.Entry{model(fmt.Sprintf(transportTemplate, o.Text))}
	case converse.OutcomeValidation:
		return []converse.Entry{
			model(fmt.Sprintf(errorTemplate, name, o.Text)),
			notice(validationNotice),
		}
	}
	if r, ok := i.rules[name]; ok {
		return r(name, o)
	}
	return DefaultRule(name, o)
}

// DefaultRule narrates failures as model entries and forwards results to the
// model as tool notices.
func DefaultRule(name string, o converse.Outcome) []converse.Entry {
	switch o.Kind {
	case converse.OutcomeToolError:
		msg := o.Text
		if strings.TrimSpace(msg) == "" {
			msg = unknownToolError
		}
		return []converse.Entry{model(fmt.Sprintf(errorTemplate, name, msg))}
	case converse.OutcomeEmpty:
		return []converse.Entry{notice(resultPrefix + emptyResult)}
	default:
		return []converse.Entry{notice(resultPrefix + o.Text)}
	}
}

// FindImageRule tells the model to carry on without an image whenever the
// search fails or comes back empty.
func FindImageRule(name string, o converse.Outcome) []converse.Entry {
	if o.Failed() {
		return []converse.Entry{
			model(imageNotFound),
			notice(imageCorrective),
		}
	}
	return DefaultRule(name, o)
}

// CreatePostRule replaces the text of a duplicate-content rejection with an
// offer to write a different version. The marker is matched case-sensitively.
func CreatePostRule(name string, o converse.Outcome) []converse.Entry {
	if o.Kind == converse.OutcomeToolError && strings.Contains(o.Text, duplicateMarker) {
		return []converse.Entry{model(fmt.Sprintf(errorTemplate, name, duplicatePost))}
	}
	return DefaultRule(name, o)
}

// TweetAnalyticsRule asks for a valid identifier when analytics come back
// empty.
func TweetAnalyticsRule(name string, o converse.Outcome) []converse.Entry {
	if o.Kind == converse.OutcomeEmpty {
		return []converse.Entry{
			model(analyticsMissing),
			notice(analyticsRetry),
		}
	}
	return DefaultRule(name, o)
}

// ReadWriteFileRule presents successful file output as the model's own words
// and asks for a corrected call otherwise.
func ReadWriteFileRule(_ string, o converse.Outcome) []converse.Entry {
	if o.Failed() {
		return []converse.Entry{
			model(fileOpFailed),
			notice(fileOpRetry),
		}
	}
	return []converse.Entry{model(o.Text)}
}

func model(text string) converse.Entry {
	return converse.NewText(converse.RoleModel, text)
}

func notice(text string) converse.Entry {
	return converse.NewText(converse.RoleToolNotice, text)
}
