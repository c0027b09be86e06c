package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// ControlFlow tells an interactive loop what to do after a command.
type ControlFlow int

const (
	Continue ControlFlow = iota
	Exit
	NotFound
)

const MultipleCommandsDelimiter = "|"

type CommandDescription struct {
	Name     string
	Syntax   string
	HelpText string
}

// ShellResponse is the outcome of one interactive command.
type ShellResponse struct {
	Response    string
	Failed      bool
	ControlFlow ControlFlow
}

type ShellCommand interface {
	Command() []string
	Execute(ctx context.Context, client *Client, args []string) ShellResponse
	GetCommandInfo() CommandDescription
}

type CommandRegistry struct {
	commands map[string]ShellCommand
	ordered  []ShellCommand
}

func AllCommands() []ShellCommand {
	return []ShellCommand{
		&ListCommand{},
		&GetCommand{},
		&CreateCommand{},
		&UpdateCommand{},
		&DeleteCommand{},
		&ClearCommand{},
		&ExitCommand{},
	}
}

func NewCommandRegistry() *CommandRegistry {
	registry := &CommandRegistry{commands: make(map[string]ShellCommand)}
	for _, command := range AllCommands() {
		registry.Register(command)
	}
	registry.Register(&HelpCommand{registry: registry})
	return registry
}

// Register makes command reachable under every one of its names.
func (r *CommandRegistry) Register(command ShellCommand) {
	for _, name := range command.Command() {
		r.commands[strings.ToUpper(name)] = command
	}
	r.ordered = append(r.ordered, command)
}

// Execute parses one input line and runs the matching command.
func (r *CommandRegistry) Execute(ctx context.Context, client *Client, line string) ShellResponse {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return ShellResponse{ControlFlow: Continue}
	}
	name := strings.ToUpper(parts[0])
	if command, exists := r.commands[name]; exists {
		return command.Execute(ctx, client, parts[1:])
	}
	return ShellResponse{Response: fmt.Sprintf("Command %s not found", name), Failed: true, ControlFlow: NotFound}
}

func failed(format string, args ...interface{}) ShellResponse {
	return ShellResponse{Response: fmt.Sprintf(format, args...), Failed: true, ControlFlow: Continue}
}

func fromResponse(resp Response, err error) ShellResponse {
	if err != nil {
		return failed("Error: %v", err)
	}
	return ShellResponse{Response: resp.Message, Failed: !resp.OK(), ControlFlow: Continue}
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid simulation id %q", raw)
	}
	return id, nil
}

type ListCommand struct{}

func (c *ListCommand) Command() []string {
	return []string{"LIST", "LS"}
}

func (c *ListCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	sims, err := client.List(ctx)
	if err != nil {
		return failed("Error: %v", err)
	}
	out := &strings.Builder{}
	RenderSimulations(out, sims)
	return ShellResponse{Response: out.String(), ControlFlow: Continue}
}

func (c *ListCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "List",
		Syntax:   fmt.Sprintf("LIST %s LS", MultipleCommandsDelimiter),
		HelpText: "List every simulation",
	}
}

type GetCommand struct{}

func (c *GetCommand) Command() []string {
	return []string{"GET"}
}

func (c *GetCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	if len(args) != 1 {
		return failed("ERR wrong number of arguments for 'GET' command")
	}
	id, err := parseID(args[0])
	if err != nil {
		return failed("ERR %v", err)
	}
	sims, err := client.Get(ctx, id)
	if err != nil {
		return failed("Error: %v", err)
	}
	out := &strings.Builder{}
	RenderSimulations(out, sims)
	return ShellResponse{Response: out.String(), ControlFlow: Continue}
}

func (c *GetCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{Name: "Get", Syntax: "GET <id>", HelpText: "Show one simulation"}
}

type CreateCommand struct{}

func (c *CreateCommand) Command() []string {
	return []string{"CREATE", "NEW"}
}

func (c *CreateCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	if len(args) < 2 {
		return failed("ERR wrong number of arguments for 'CREATE' command")
	}
	id, err := parseID(args[0])
	if err != nil {
		return failed("ERR %v", err)
	}
	return fromResponse(client.Create(ctx, Simulation{ID: id, Name: strings.Join(args[1:], " ")}))
}

func (c *CreateCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "Create",
		Syntax:   fmt.Sprintf("CREATE <id> <name> %s NEW <id> <name>", MultipleCommandsDelimiter),
		HelpText: "Create a simulation unless the id is taken",
	}
}

type UpdateCommand struct{}

func (c *UpdateCommand) Command() []string {
	return []string{"UPDATE", "PUT"}
}

func (c *UpdateCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	if len(args) < 2 {
		return failed("ERR wrong number of arguments for 'UPDATE' command")
	}
	id, err := parseID(args[0])
	if err != nil {
		return failed("ERR %v", err)
	}
	return fromResponse(client.Update(ctx, id, strings.Join(args[1:], " ")))
}

func (c *UpdateCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "Update",
		Syntax:   fmt.Sprintf("UPDATE <id> <name> %s PUT <id> <name>", MultipleCommandsDelimiter),
		HelpText: "Rename a simulation, creating it if absent",
	}
}

type DeleteCommand struct{}

func (c *DeleteCommand) Command() []string {
	return []string{"DELETE", "DEL"}
}

func (c *DeleteCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	if len(args) != 1 {
		return failed("ERR wrong number of arguments for 'DELETE' command")
	}
	id, err := parseID(args[0])
	if err != nil {
		return failed("ERR %v", err)
	}
	return fromResponse(client.Delete(ctx, id))
}

func (c *DeleteCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "Delete",
		Syntax:   fmt.Sprintf("DELETE <id> %s DEL <id>", MultipleCommandsDelimiter),
		HelpText: "Delete a simulation",
	}
}

type ClearCommand struct{}

func (c *ClearCommand) Command() []string {
	return []string{"CLEAR", "CLS"}
}

func (c *ClearCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	return ShellResponse{Response: "\033[H\033[2J", ControlFlow: Continue}
}

func (c *ClearCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "Clear",
		Syntax:   fmt.Sprintf("CLEAR %s CLS", MultipleCommandsDelimiter),
		HelpText: "Clear the screen",
	}
}

type ExitCommand struct{}

func (c *ExitCommand) Command() []string {
	return []string{"EXIT", "QUIT"}
}

func (c *ExitCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	return ShellResponse{Response: "Bye...", ControlFlow: Exit}
}

func (c *ExitCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "Exit",
		Syntax:   fmt.Sprintf("EXIT %s QUIT", MultipleCommandsDelimiter),
		HelpText: "Exit the client",
	}
}

type HelpCommand struct {
	registry *CommandRegistry
}

func (c *HelpCommand) Command() []string {
	return []string{"HELP", "?"}
}

func (c *HelpCommand) Execute(ctx context.Context, client *Client, args []string) ShellResponse {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetHeader([]string{"Command", "Syntax", "Description"})
	table.SetRowLine(true)
	table.SetAutoMergeCells(true)

	// alternative spellings get a row each, merged on the shared name
	separator := fmt.Sprintf(" %s ", MultipleCommandsDelimiter)
	for _, command := range c.registry.ordered {
		description := command.GetCommandInfo()
		for _, syntax := range strings.Split(description.Syntax, separator) {
			table.Append([]string{description.Name, syntax, description.HelpText})
		}
	}
	table.Render()

	return ShellResponse{Response: tableString.String(), ControlFlow: Continue}
}

func (c *HelpCommand) GetCommandInfo() CommandDescription {
	return CommandDescription{
		Name:     "Help",
		Syntax:   fmt.Sprintf("HELP %s ?", MultipleCommandsDelimiter),
		HelpText: "Show this help message",
	}
}
