package models

// Figure is one named aggregate owned by the spreadsheet, read verbatim.
type Figure struct {
	Cell  string
	Label string
	Value string
}

// Receipt confirms an append. BalancesAvailable is false when the entry was
// written but the balance cells could not be read back.
type Receipt struct {
	Row               []string
	SubmitterName     string
	Balances          []Figure
	BalancesAvailable bool
}

// Field is one non-empty cell of an overview row with its column header.
type Field struct {
	Header string
	Value  string
}

type OverviewRow struct {
	Title  string
	Fields []Field
}

// Overview is the whole-sheet view shown by the "all" command.
type Overview struct {
	Rows             []OverviewRow
	Summary          []Figure
	SummaryAvailable bool
}

// BalanceFigures are read after every append.
var BalanceFigures = []Figure{
	{Cell: "C1", Label: "Dollar"},
	{Cell: "D1", Label: "Sum"},
}

// SummaryFigures close the overview.
var SummaryFigures = []Figure{
	{Cell: "D1", Label: "Ostatka Som"},
	{Cell: "G1", Label: "Ostatka $"},
	{Cell: "J1", Label: "Ostatka Bank"},
	{Cell: "M1", Label: "Bugungi qarzdorlar"},
	{Cell: "N1", Label: "Umumiy Qarzdorlar"},
	{Cell: "O1", Label: "Mavjud Obektlar summasi"},
}

// ExcludedHeaders are sheet columns left out of the overview.
var ExcludedHeaders = []string{
	"Som Kirim",
	"Som chiqim",
	"Kirim $",
	"Chiqim $",
	"Bank kirim",
	"Bank chiqim",
}
