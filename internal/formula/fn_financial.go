package formula

import (
	"math"

	"github.com/roach88/gridcalc/internal/ir"
)

// Cash flows follow the usual sign convention: money paid out is
// negative. A type argument other than 0 means payments at the start of
// each period.
var financialFuncs = map[string]fn{
	"PMT":      fnPmt,
	"IPMT":     periodPayment("IPMT", false),
	"PPMT":     periodPayment("PPMT", true),
	"FV":       fnFv,
	"PV":       fnPv,
	"NPV":      fnNpv,
	"IRR":      fnIrr,
	"CUMIPMT":  cumulativePayment("CUMIPMT", false),
	"CUMPRINC": cumulativePayment("CUMPRINC", true),
}

// maxCumulativePeriods bounds the periods one CUMIPMT/CUMPRINC call sums.
const maxCumulativePeriods = 1 << 20

// financeArgs evaluates every argument as a number and pads the optional
// tail with zeros up to want.
func (c *evalCtx) financeArgs(args []Expr, want int) ([]float64, ir.Value) {
	out := make([]float64, want)
	for i, arg := range args {
		n, err := c.num(arg)
		if err != nil {
			return nil, ir.AsError(err)
		}
		out[i] = n
	}
	return out, nil
}

func paymentType(t float64) bool { return t != 0 }

func payment(rate, nper, pv, fv float64, atStart bool) float64 {
	if rate == 0 {
		return -(pv + fv) / nper
	}
	pow := math.Pow(1+rate, nper)
	p := rate * (pv*pow + fv) / (pow - 1)
	if atStart {
		return -p / (1 + rate)
	}
	return -p
}

// interestPayment is the interest part of payment number per: the
// balance before that payment times rate.
func interestPayment(rate, per, nper, pv, fv float64, atStart bool) float64 {
	if rate == 0 {
		return 0
	}
	pmt := payment(rate, nper, pv, fv, atStart)
	if atStart {
		if per == 1 {
			return 0
		}
		k := math.Pow(1+rate, per-2)
		return (-pv*k - pmt*(1+rate)*(k-1)/rate) * rate
	}
	k := math.Pow(1+rate, per-1)
	return (-pv*k - pmt*(k-1)/rate) * rate
}

// annuityFactor is the value after nper periods of a unit payment.
func annuityFactor(rate, nper float64, atStart bool) float64 {
	f := (math.Pow(1+rate, nper) - 1) / rate
	if atStart {
		f *= 1 + rate
	}
	return f
}

// fnPmt is PMT(rate, nper, pv, [fv], [type]).
func fnPmt(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("PMT", args, 3, 5); errv != nil {
		return errv
	}
	v, errv := c.financeArgs(args, 5)
	if errv != nil {
		return errv
	}
	rate, nper, pv, fv, typ := v[0], v[1], v[2], v[3], v[4]
	if nper == 0 {
		return ir.ErrNum
	}
	return numberResult(payment(rate, nper, pv, fv, paymentType(typ)))
}

// periodPayment builds IPMT and PPMT: (rate, per, nper, pv, [fv], [type]).
func periodPayment(name string, principal bool) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 4, 6); errv != nil {
			return errv
		}
		v, errv := c.financeArgs(args, 6)
		if errv != nil {
			return errv
		}
		rate, per, nper, pv, fv, typ := v[0], v[1], v[2], v[3], v[4], v[5]
		if nper == 0 || per < 1 || per > nper {
			return ir.ErrNum
		}
		start := paymentType(typ)
		interest := interestPayment(rate, per, nper, pv, fv, start)
		if principal {
			return numberResult(payment(rate, nper, pv, fv, start) - interest)
		}
		return numberResult(interest)
	}
}

// cumulativePayment builds CUMIPMT and CUMPRINC:
// (rate, nper, pv, start_period, end_period, type).
func cumulativePayment(name string, principal bool) fn {
	return func(c *evalCtx, args []Expr) ir.Value {
		if errv := checkArity(name, args, 6, 6); errv != nil {
			return errv
		}
		v, errv := c.financeArgs(args, 6)
		if errv != nil {
			return errv
		}
		rate, nper, pv, typ := v[0], v[1], v[2], v[5]
		first, last := int(v[3]), int(v[4])
		if rate <= 0 || nper <= 0 || pv <= 0 {
			return ir.ErrNum
		}
		if first < 1 || last < first || last > int(nper) || last-first >= maxCumulativePeriods {
			return ir.ErrNum
		}
		start := paymentType(typ)
		pmt := payment(rate, nper, pv, 0, start)
		total := 0.0
		for per := first; per <= last; per++ {
			interest := interestPayment(rate, float64(per), nper, pv, 0, start)
			if principal {
				total += pmt - interest
			} else {
				total += interest
			}
		}
		return numberResult(total)
	}
}

// fnFv is FV(rate, nper, pmt, [pv], [type]).
func fnFv(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("FV", args, 3, 5); errv != nil {
		return errv
	}
	v, errv := c.financeArgs(args, 5)
	if errv != nil {
		return errv
	}
	rate, nper, pmt, pv, typ := v[0], v[1], v[2], v[3], v[4]
	if rate == 0 {
		return numberResult(-pv - pmt*nper)
	}
	return numberResult(-pv*math.Pow(1+rate, nper) - pmt*annuityFactor(rate, nper, paymentType(typ)))
}

// fnPv is PV(rate, nper, pmt, [fv], [type]).
func fnPv(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("PV", args, 3, 5); errv != nil {
		return errv
	}
	v, errv := c.financeArgs(args, 5)
	if errv != nil {
		return errv
	}
	rate, nper, pmt, fv, typ := v[0], v[1], v[2], v[3], v[4]
	if rate == 0 {
		return numberResult(-fv - pmt*nper)
	}
	return numberResult((-fv - pmt*annuityFactor(rate, nper, paymentType(typ))) / math.Pow(1+rate, nper))
}

// cashFlows collects the flows for NPV and IRR. Range members that are
// blank or text are skipped and errors propagate.
func (c *evalCtx) cashFlows(args []Expr) ([]float64, ir.Value) {
	var flows []float64
	for _, arg := range args {
		if !isReference(arg) {
			n, err := c.num(arg)
			if err != nil {
				return nil, ir.AsError(err)
			}
			flows = append(flows, n)
			continue
		}
		a, errv := c.area(arg)
		if errv != nil {
			return nil, errv
		}
		for _, v := range c.values(a) {
			if e, ok := v.(ir.Error); ok {
				return nil, e
			}
			if n, ok := v.(ir.Number); ok {
				flows = append(flows, float64(n))
			}
		}
	}
	return flows, nil
}

// fnNpv discounts the flows starting one period out.
func fnNpv(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("NPV", args, 2, -1); errv != nil {
		return errv
	}
	rate, err := c.num(args[0])
	if err != nil {
		return ir.AsError(err)
	}
	if rate == -1 {
		return ir.ErrDiv0
	}
	flows, errv := c.cashFlows(args[1:])
	if errv != nil {
		return errv
	}
	npv := 0.0
	for i, cf := range flows {
		npv += cf / math.Pow(1+rate, float64(i+1))
	}
	return numberResult(npv)
}

// irrBrackets are the rates tried for a sign change when Newton's
// method does not converge.
var irrBrackets = []float64{
	-0.99, -0.95, -0.9, -0.8, -0.5, -0.3, -0.1,
	0, 0.1, 0.2, 0.3, 0.5, 0.8, 1, 2, 5, 10,
}

// fnIrr is IRR(values, [guess]). It tries Newton's method from guess
// (default 10%) and falls back to bisection over the first bracketed
// sign change.
func fnIrr(c *evalCtx, args []Expr) ir.Value {
	if errv := checkArity("IRR", args, 1, 2); errv != nil {
		return errv
	}
	if !isReference(args[0]) {
		return ir.Error{Msg: "IRR requires a range of values"}
	}
	flows, errv := c.cashFlows(args[:1])
	if errv != nil {
		return errv
	}
	guess := 0.1
	if len(args) == 2 {
		g, err := c.num(args[1])
		if err != nil {
			return ir.AsError(err)
		}
		guess = g
	}
	var pos, neg bool
	for _, cf := range flows {
		pos = pos || cf > 0
		neg = neg || cf < 0
	}
	if len(flows) < 2 || !pos || !neg {
		return ir.ErrNum
	}
	if rate, ok := irrNewton(flows, guess); ok {
		return ir.Number(rate)
	}
	if rate, ok := irrBisect(flows); ok {
		return ir.Number(rate)
	}
	return ir.ErrNum
}

func npvAt(flows []float64, rate float64) float64 {
	sum := 0.0
	for i, cf := range flows {
		sum += cf / math.Pow(1+rate, float64(i))
	}
	return sum
}

func irrNewton(flows []float64, rate float64) (float64, bool) {
	for range 100 {
		npv, slope := 0.0, 0.0
		for i, cf := range flows {
			t := float64(i)
			npv += cf / math.Pow(1+rate, t)
			if i > 0 {
				slope -= t * cf / math.Pow(1+rate, t+1)
			}
		}
		if math.Abs(slope) < 1e-30 {
			return 0, false
		}
		next := rate - npv/slope
		if math.Abs(next-rate) < 1e-10 {
			return next, next > -1 && !math.IsInf(next, 0) && !math.IsNaN(next)
		}
		rate = next
		if rate <= -1 || rate > 10 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return 0, false
		}
	}
	return 0, false
}

func irrBisect(flows []float64) (float64, bool) {
	lo, hi := math.NaN(), math.NaN()
	var loNPV float64
	prevRate, prevNPV := math.NaN(), math.NaN()
	for _, r := range irrBrackets {
		npv := npvAt(flows, r)
		if math.IsNaN(npv) || math.IsInf(npv, 0) {
			prevRate, prevNPV = math.NaN(), math.NaN()
			continue
		}
		if !math.IsNaN(prevNPV) && prevNPV != 0 && math.Signbit(npv) != math.Signbit(prevNPV) {
			lo, hi, loNPV = prevRate, r, prevNPV
			break
		}
		prevRate, prevNPV = r, npv
	}
	if math.IsNaN(lo) {
		return 0, false
	}
	for range 200 {
		mid := (lo + hi) / 2
		npv := npvAt(flows, mid)
		if math.IsNaN(npv) || math.IsInf(npv, 0) {
			return 0, false
		}
		if math.Abs(npv) < 1e-10 || hi-lo < 1e-12 {
			return mid, true
		}
		if math.Signbit(npv) == math.Signbit(loNPV) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}
