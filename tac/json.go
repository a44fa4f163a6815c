package tac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type jsonInstr struct {
	Opcode string            `json:"opcode"`
	Args   []json.RawMessage `json:"args"`
	Result json.RawMessage   `json:"result"`
}

type jsonProc struct {
	Proc   string      `json:"proc"`
	Args   []string    `json:"args"`
	Body   []jsonInstr `json:"body"`
	Temps  []string    `json:"temps"`
	Labels []string    `json:"labels"`
}

type jsonGlobal struct {
	Var  string `json:"var"`
	Init int64  `json:"init"`
}

// WriteProgram encodes p in the backend wire format: a JSON array holding one
// record per global followed by one record per procedure.
func WriteProgram(w io.Writer, p *Program) error {
	records := make([]any, 0, len(p.Globals)+len(p.Procs))
	for _, g := range p.Globals {
		records = append(records, jsonGlobal{Var: "@" + g.Name, Init: g.Init})
	}
	for _, proc := range p.Procs {
		jp, err := encodeProc(proc)
		if err != nil {
			return err
		}
		records = append(records, jp)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// SaveProgramFile writes p to path in the wire format.
func SaveProgramFile(path string, p *Program) error {
	var buf bytes.Buffer
	if err := WriteProgram(&buf, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write TAC file: %w", err)
	}
	return nil
}

func encodeProc(p *Proc) (jsonProc, error) {
	jp := jsonProc{
		Proc:   "@" + p.Name,
		Args:   make([]string, 0, len(p.Params)),
		Body:   make([]jsonInstr, 0, len(p.Body)),
		Temps:  make([]string, 0, len(p.Temps)),
		Labels: make([]string, 0, len(p.Labels)),
	}
	for _, t := range p.Params {
		jp.Args = append(jp.Args, t.String())
	}
	for _, t := range p.Temps {
		jp.Temps = append(jp.Temps, t.String())
	}
	for _, l := range p.Labels {
		jp.Labels = append(jp.Labels, l.String())
	}

	for _, inst := range p.Body {
		ji := jsonInstr{
			Opcode: inst.Op.String(),
			Args:   make([]json.RawMessage, 0, len(inst.Args)),
			Result: json.RawMessage("null"),
		}
		for _, a := range inst.Args {
			raw, err := encodeOperand(a)
			if err != nil {
				return jp, fmt.Errorf("proc @%s: %w", p.Name, err)
			}
			ji.Args = append(ji.Args, raw)
		}
		if inst.Result != nil {
			raw, err := encodeOperand(inst.Result)
			if err != nil {
				return jp, fmt.Errorf("proc @%s: %w", p.Name, err)
			}
			ji.Result = raw
		}
		jp.Body = append(jp.Body, ji)
	}

	return jp, nil
}

func encodeOperand(o Operand) (json.RawMessage, error) {
	if o == nil {
		return nil, fmt.Errorf("nil operand")
	}
	if i, ok := o.(Int); ok {
		return json.Marshal(int64(i))
	}
	return json.Marshal(o.String())
}

// ReadProgram decodes a program in the wire format.
func ReadProgram(r io.Reader) (*Program, error) {
	var records []json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode TAC: %w", err)
	}

	p := &Program{}
	for n, raw := range records {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}

		switch {
		case keys["var"] != nil:
			var jg jsonGlobal
			if err := json.Unmarshal(raw, &jg); err != nil {
				return nil, fmt.Errorf("record %d: %w", n, err)
			}
			name, err := symbolName(jg.Var)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", n, err)
			}
			p.Globals = append(p.Globals, &GlobalVar{Name: name, Init: jg.Init})
		case keys["proc"] != nil:
			var jp jsonProc
			if err := json.Unmarshal(raw, &jp); err != nil {
				return nil, fmt.Errorf("record %d: %w", n, err)
			}
			proc, err := decodeProc(jp)
			if err != nil {
				return nil, err
			}
			p.Procs = append(p.Procs, proc)
		default:
			return nil, fmt.Errorf("record %d is neither a proc nor a var", n)
		}
	}

	return p, nil
}

// LoadProgramFile reads a program in the wire format from path.
func LoadProgramFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open TAC file: %w", err)
	}
	defer f.Close()

	return ReadProgram(f)
}

func symbolName(s string) (string, error) {
	if !strings.HasPrefix(s, "@") || len(s) < 2 {
		return "", fmt.Errorf("invalid global name %q", s)
	}
	return s[1:], nil
}

// names interns the temporaries and labels of one procedure. Numeric names
// keep their index, other names are given fresh indices above the largest
// numeric one.
type names struct {
	temps     map[string]Temp
	labels    map[string]Label
	nextTemp  Temp
	nextLabel Label
}

func newNames(jp jsonProc) *names {
	n := &names{
		temps:  make(map[string]Temp),
		labels: make(map[string]Label),
	}

	observe := func(s string) {
		if l, err := ParseLabel(s); err == nil {
			if l >= n.nextLabel {
				n.nextLabel = l + 1
			}
			return
		}
		if t, err := ParseTemp(s); err == nil && t >= n.nextTemp {
			n.nextTemp = t + 1
		}
	}

	for _, s := range jp.Args {
		observe(s)
	}
	for _, s := range jp.Temps {
		observe(s)
	}
	for _, s := range jp.Labels {
		observe(s)
	}
	observeRaw := func(raw json.RawMessage) {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			observe(s)
		}
	}
	for _, ji := range jp.Body {
		for _, raw := range ji.Args {
			observeRaw(raw)
		}
		if len(ji.Result) > 0 {
			observeRaw(ji.Result)
		}
	}

	return n
}

func (n *names) temp(s string) (Temp, error) {
	if t, err := ParseTemp(s); err == nil {
		return t, nil
	}
	if !strings.HasPrefix(s, "%") || strings.HasPrefix(s, "%.") || len(s) < 2 {
		return 0, fmt.Errorf("invalid temporary %q", s)
	}
	if t, ok := n.temps[s]; ok {
		return t, nil
	}
	t := n.nextTemp
	n.nextTemp++
	n.temps[s] = t
	return t, nil
}

func (n *names) label(s string) (Label, error) {
	if l, err := ParseLabel(s); err == nil {
		return l, nil
	}
	if !strings.HasPrefix(s, "%.") || len(s) < 3 {
		return 0, fmt.Errorf("invalid label %q", s)
	}
	if l, ok := n.labels[s]; ok {
		return l, nil
	}
	l := n.nextLabel
	n.nextLabel++
	n.labels[s] = l
	return l, nil
}

func (n *names) operand(raw json.RawMessage, op Opcode, pos int) (Operand, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid integer operand %s", x)
		}
		return Int(i), nil
	case string:
		isLabelPos := op == OpLabel || op == OpJmp || (op.IsCondJump() && pos == 1)
		switch {
		case isLabelPos:
			return n.label(x)
		case strings.HasPrefix(x, "@"):
			name, err := symbolName(x)
			if err != nil {
				return nil, err
			}
			if op == OpCall && pos == 0 {
				return ProcRef(name), nil
			}
			return Global(name), nil
		default:
			return n.temp(x)
		}
	}

	return nil, fmt.Errorf("unsupported operand %s", string(raw))
}

func decodeProc(jp jsonProc) (*Proc, error) {
	name, err := symbolName(jp.Proc)
	if err != nil {
		return nil, err
	}

	n := newNames(jp)
	p := &Proc{Name: name}

	for _, s := range jp.Args {
		t, err := n.temp(s)
		if err != nil {
			return nil, fmt.Errorf("proc %s: %w", jp.Proc, err)
		}
		p.Params = append(p.Params, t)
	}

	for k, ji := range jp.Body {
		op, err := ParseOpcode(ji.Opcode)
		if err != nil {
			return nil, fmt.Errorf("proc %s, instruction %d: %w", jp.Proc, k, err)
		}

		inst := &Instr{Op: op}
		for pos, raw := range ji.Args {
			a, err := n.operand(raw, op, pos)
			if err != nil {
				return nil, fmt.Errorf("proc %s, instruction %d: %w", jp.Proc, k, err)
			}
			inst.Args = append(inst.Args, a)
		}
		if len(ji.Result) > 0 && string(ji.Result) != "null" {
			res, err := n.operand(ji.Result, op, -1)
			if err != nil {
				return nil, fmt.Errorf("proc %s, instruction %d: %w", jp.Proc, k, err)
			}
			inst.Result = res
		}

		if err := Validate(inst); err != nil {
			return nil, fmt.Errorf("proc %s, instruction %d: %w", jp.Proc, k, err)
		}
		p.Body = append(p.Body, inst)
	}

	for _, s := range jp.Temps {
		t, err := n.temp(s)
		if err != nil {
			return nil, fmt.Errorf("proc %s: %w", jp.Proc, err)
		}
		p.Temps = append(p.Temps, t)
	}
	for _, s := range jp.Labels {
		l, err := n.label(s)
		if err != nil {
			return nil, fmt.Errorf("proc %s: %w", jp.Proc, err)
		}
		p.Labels = append(p.Labels, l)
	}

	return p, nil
}
