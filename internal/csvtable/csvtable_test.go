package csvtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuotedFields(t *testing.T) {
	t.Parallel()

	input := "a,b\n\"a,b\",\"he said \"\"hi\"\"\"\n"
	records := Parse(input)

	require.Len(t, records, 1)
	assert.Equal(t, "a,b", records[0]["a"])
	assert.Equal(t, `he said "hi"`, records[0]["b"])
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []Record
	}{
		{
			name:  "empty input",
			input: "",
			want:  []Record{},
		},
		{
			name:  "whitespace only",
			input: " \n\r\n ",
			want:  []Record{},
		},
		{
			name:  "header only",
			input: "species_code,common_name\n",
			want:  []Record{},
		},
		{
			name:  "trims header and values",
			input: " species_code , common_name \n amecro , American Crow \n",
			want:  []Record{{"species_code": "amecro", "common_name": "American Crow"}},
		},
		{
			name:  "crlf line endings",
			input: "a,b\r\n1,2\r\n3,4\r\n",
			want:  []Record{{"a": "1", "b": "2"}, {"a": "3", "b": "4"}},
		},
		{
			name:  "missing fields map to empty",
			input: "a,b,c\n1\n",
			want:  []Record{{"a": "1", "b": "", "c": ""}},
		},
		{
			name:  "surplus fields are ignored",
			input: "a,b\n1,2,3,4\n",
			want:  []Record{{"a": "1", "b": "2"}},
		},
		{
			name:  "blank data lines are skipped",
			input: "a\n1\n\n   \n2\n",
			want:  []Record{{"a": "1"}, {"a": "2"}},
		},
		{
			name:  "unterminated quote takes rest of line",
			input: "a,b\n\"x,y,z\n1,2\n",
			want:  []Record{{"a": "x,y,z", "b": ""}, {"a": "1", "b": "2"}},
		},
		{
			name:  "quotes in the middle of a field",
			input: "a,b\nfoo\"bar,baz\"qux,last\n",
			want:  []Record{{"a": "foobar,bazqux", "b": "last"}},
		},
		{
			name:  "empty quoted field",
			input: "a,b\n\"\",x\n",
			want:  []Record{{"a": "", "b": "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParseTableHeaderAndColumn(t *testing.T) {
	t.Parallel()

	table := ParseTable("timestamp,rms_p95\n2024-05-01T10:00:00,0.1\n2024-05-01T10:00:10,0.2\n")

	assert.Equal(t, []string{"timestamp", "rms_p95"}, table.Header)
	assert.Len(t, table.Records, 2)
	assert.Equal(t, []string{"0.1", "0.2"}, table.Column("rms_p95"))
	assert.Equal(t, []string{"", ""}, table.Column("missing"))
	assert.Empty(t, table.Records[0].Get("missing"))
}

func TestSplitLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want []string
	}{
		{line: "", want: []string{""}},
		{line: ",", want: []string{"", ""}},
		{line: `"a""b"`, want: []string{`a"b`}},
		{line: ` a , b `, want: []string{" a ", " b "}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitLine(tt.line))
		})
	}
}
