package symexec

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	hdl "github.com/speakeasy-api/hdlsym"
)

// ErrPathSpaceOverflow is returned when the combined path space cannot be
// enumerated with 64-bit combination indices.
var ErrPathSpaceOverflow = errors.New("path space exceeds 2^64 combinations")

// CountDecisions returns the number of binary decision points under n,
// walking both arms of every conditional. Every case arm is one decision.
func CountDecisions(n hdl.Node) int {
	switch n := n.(type) {
	case *hdl.Block:
		total := 0
		for _, s := range n.Stmts {
			total += CountDecisions(s)
		}
		return total
	case *hdl.If:
		return 1 + CountDecisions(n.Then) + CountDecisions(n.Else)
	case *hdl.Case:
		total := 0
		for _, it := range n.Items {
			total += 1 + CountDecisions(it.Body)
		}
		return total
	case *hdl.Always:
		return CountDecisions(n.Body)
	case *hdl.Initial:
		return CountDecisions(n.Body)
	}
	return 0
}

// ModuleDecisions sums CountDecisions over the items of m.
func ModuleDecisions(m *hdl.Module) int {
	total := 0
	for _, it := range m.Items {
		total += CountDecisions(it)
	}
	return total
}

// PathSpaceSize returns 2^decisions.
func PathSpaceSize(decisions int) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(decisions))
}

// ToBinary renders i as a width-character string of '0' and '1', most
// significant bit first. Bits above width are dropped.
func ToBinary(i uint64, width int) string {
	var b strings.Builder
	b.Grow(width)
	for pos := width - 1; pos >= 0; pos-- {
		if pos < 64 && i&(1<<uint(pos)) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// FromBinary parses a path code produced by ToBinary.
func FromBinary(code string) (uint64, error) {
	var v uint64
	for i := 0; i < len(code); i++ {
		pos := len(code) - 1 - i
		switch code[i] {
		case '1':
			if pos >= 64 {
				return 0, errors.Errorf("path code %q overflows 64 bits", code)
			}
			v |= 1 << uint(pos)
		case '0':
		default:
			return 0, errors.Errorf("invalid path code character %q", code[i])
		}
	}
	return v, nil
}

// ModuleSpace describes the branch space of one module.
type ModuleSpace struct {
	Name      string
	Decisions int
	Size      *big.Int
}

// PathSpace is the Cartesian product of per-module branch spaces in design
// order; the last module varies fastest.
type PathSpace struct {
	Modules []ModuleSpace
	Total   *big.Int
	width   int
}

// NewPathSpace sizes every module of d.
func NewPathSpace(d *hdl.Design, width int) *PathSpace {
	ps := &PathSpace{Total: big.NewInt(1), width: width}
	for _, m := range d.Modules {
		n := ModuleDecisions(m)
		size := PathSpaceSize(n)
		ps.Modules = append(ps.Modules, ModuleSpace{Name: m.Name, Decisions: n, Size: size})
		ps.Total.Mul(ps.Total, size)
	}
	return ps
}

// Count returns the total number of combinations as a uint64.
func (ps *PathSpace) Count() (uint64, error) {
	if !ps.Total.IsUint64() {
		return 0, errors.Wrapf(ErrPathSpaceOverflow, "total %s", ps.Total)
	}
	return ps.Total.Uint64(), nil
}

// Aliased lists the modules with more decisions than the code width.
func (ps *PathSpace) Aliased() []string {
	var names []string
	for _, m := range ps.Modules {
		if m.Decisions > ps.width {
			names = append(names, m.Name)
		}
	}
	return names
}

// Odometer walks combinations as a mixed-radix counter without
// materializing the product.
type Odometer struct {
	names  []string
	radix  []uint64
	digits []uint64
	width  int
}

// NewOdometer returns an odometer positioned at combination 0. The path
// space must fit in 64 bits.
func (ps *PathSpace) NewOdometer() (*Odometer, error) {
	if _, err := ps.Count(); err != nil {
		return nil, err
	}
	o := &Odometer{width: ps.width}
	for _, m := range ps.Modules {
		o.names = append(o.names, m.Name)
		o.radix = append(o.radix, m.Size.Uint64())
	}
	o.digits = make([]uint64, len(o.radix))
	return o, nil
}

// Seek positions the odometer at combination index.
func (o *Odometer) Seek(index uint64) {
	for i := len(o.radix) - 1; i >= 0; i-- {
		o.digits[i] = index % o.radix[i]
		index /= o.radix[i]
	}
}

// Next advances to the following combination, reporting false on wrap.
func (o *Odometer) Next() bool {
	for i := len(o.digits) - 1; i >= 0; i-- {
		o.digits[i]++
		if o.digits[i] < o.radix[i] {
			return true
		}
		o.digits[i] = 0
	}
	return false
}

// Codes returns the path code assigned to every module.
func (o *Odometer) Codes() map[string]string {
	codes := make(map[string]string, len(o.names))
	for i, name := range o.names {
		codes[name] = ToBinary(o.digits[i], o.width)
	}
	return codes
}
