// Package formula parses, binds and evaluates spreadsheet formulas.
//
// The pipeline is:
//
//	Parse(text)        -> Expr with sheet names unresolved
//	Bind(expr, sheets) -> Expr with every SheetRef resolved to an id or RefError
//	ExtractCellIDs     -> the set of cells a bound Expr reads
//	Evaluate(expr, lk) -> ir.Value
//
// Built-in functions are grouped in families (aggregation, rounding,
// criteria, array, date/time, logical, text, lookup) that register into a
// single name->handler table. Unknown names evaluate to #NAME?.
//
// Evaluation never panics on well-formed input: wrong arity or argument
// kinds produce a descriptive ir.Error value.
package formula
