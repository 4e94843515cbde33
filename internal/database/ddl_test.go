package database

import (
	"strings"
	"testing"

	"github.com/koba/db-migrate/internal/schema"
)

func TestQuoteIdentifier(t *testing.T) {
	if got := NewDDL("mysql").quoteIdentifier("users"); got != "`users`" {
		t.Errorf("mysql quoting = %q", got)
	}
	if got := NewDDL("postgres").quoteIdentifier("users"); got != `"users"` {
		t.Errorf("postgres quoting = %q", got)
	}
	if got := NewDDL("sqlite").quoteIdentifier(`od"d`); got != `"od""d"` {
		t.Errorf("embedded quote not escaped: %q", got)
	}
	if got := NewDDL("mysql").quoteIdentifier("od`d"); got != "`od``d`" {
		t.Errorf("embedded backtick not escaped: %q", got)
	}
}

func TestCreateTable(t *testing.T) {
	table := &schema.Table{
		Name: "accounts",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Type{Kind: schema.Integer}, PrimaryKey: true},
			{Name: "login", Type: schema.Type{Kind: schema.String, Length: 40}},
			{Name: "group_id", Type: schema.Type{Kind: schema.Integer}, Nullable: true, Constraints: []schema.Constraint{
				{Kind: schema.ForeignKey, ReferencedTable: "groups", ReferencedColumn: "id"},
			}},
		},
	}

	got := NewDDL("sqlite").CreateTable(table)
	want := "CREATE TABLE \"accounts\" (\n" +
		"  \"id\" INTEGER NOT NULL,\n" +
		"  \"login\" VARCHAR(40) NOT NULL,\n" +
		"  \"group_id\" INTEGER,\n" +
		"  PRIMARY KEY (\"id\"),\n" +
		"  FOREIGN KEY (\"group_id\") REFERENCES \"groups\"(\"id\")\n" +
		")"
	if got != want {
		t.Errorf("CreateTable:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestColumnDefinition(t *testing.T) {
	def := "0"
	tests := []struct {
		name string
		col  schema.Column
		want string
	}{
		{
			name: "not null default",
			col:  schema.Column{Name: "deleted", Type: schema.Type{Kind: schema.Boolean}, Default: &def},
			want: `"deleted" BOOLEAN NOT NULL DEFAULT 0`,
		},
		{
			name: "nullable",
			col:  schema.Column{Name: "notes", Type: schema.Type{Kind: schema.Text}, Nullable: true},
			want: `"notes" TEXT`,
		},
		{
			name: "unique",
			col: schema.Column{Name: "email", Type: schema.Type{Kind: schema.String, Length: 120}, Nullable: true,
				Constraints: []schema.Constraint{{Kind: schema.Unique}}},
			want: `"email" VARCHAR(120) UNIQUE`,
		},
		{
			name: "check",
			col: schema.Column{Name: "age", Type: schema.Type{Kind: schema.Integer}, Nullable: true,
				Constraints: []schema.Constraint{{Kind: schema.Check, Expression: "age > 0"}}},
			want: `"age" INTEGER CHECK (age > 0)`,
		},
		{
			name: "raw spelling wins",
			col:  schema.Column{Name: "n", Type: schema.Type{Kind: schema.Numeric, Raw: "NUMERIC(10,2)"}, Nullable: true},
			want: `"n" NUMERIC(10,2)`,
		},
	}

	ddl := NewDDL("sqlite")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ddl.ColumnDefinition(&tt.col); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAlterColumnPerDialect(t *testing.T) {
	from := &schema.Column{Name: "amount", Type: schema.Type{Kind: schema.Integer}}
	to := &schema.Column{Name: "amount", Type: schema.Type{Kind: schema.BigInteger}}

	pg := NewDDL("postgres").AlterColumn("orders", from, to)
	if len(pg) != 1 || pg[0] != `ALTER TABLE "orders" ALTER COLUMN "amount" TYPE BIGINT` {
		t.Errorf("postgres alter = %q", pg)
	}

	my := NewDDL("mysql").AlterColumn("orders", from, to)
	if len(my) != 1 || my[0] != "ALTER TABLE `orders` MODIFY COLUMN `amount` BIGINT NOT NULL" {
		t.Errorf("mysql alter = %q", my)
	}
}

func TestAlterColumnPostgresReconcilesEveryAttribute(t *testing.T) {
	def := "0"
	ddl := NewDDL("postgres")

	tests := []struct {
		name string
		from schema.Column
		to   schema.Column
		want []string
	}{
		{
			name: "nullability only",
			from: schema.Column{Name: "email", Type: schema.Type{Kind: schema.Text}, Nullable: true},
			to:   schema.Column{Name: "email", Type: schema.Type{Kind: schema.Text}},
			want: []string{`ALTER TABLE "t" ALTER COLUMN "email" SET NOT NULL`},
		},
		{
			name: "drop not null",
			from: schema.Column{Name: "email", Type: schema.Type{Kind: schema.Text}},
			to:   schema.Column{Name: "email", Type: schema.Type{Kind: schema.Text}, Nullable: true},
			want: []string{`ALTER TABLE "t" ALTER COLUMN "email" DROP NOT NULL`},
		},
		{
			name: "default only",
			from: schema.Column{Name: "paid", Type: schema.Type{Kind: schema.Boolean}, Nullable: true},
			to:   schema.Column{Name: "paid", Type: schema.Type{Kind: schema.Boolean}, Nullable: true, Default: &def},
			want: []string{`ALTER TABLE "t" ALTER COLUMN "paid" SET DEFAULT 0`},
		},
		{
			name: "default removed",
			from: schema.Column{Name: "paid", Type: schema.Type{Kind: schema.Boolean}, Nullable: true, Default: &def},
			to:   schema.Column{Name: "paid", Type: schema.Type{Kind: schema.Boolean}, Nullable: true},
			want: []string{`ALTER TABLE "t" ALTER COLUMN "paid" DROP DEFAULT`},
		},
		{
			name: "type nullability and default together",
			from: schema.Column{Name: "n", Type: schema.Type{Kind: schema.Integer}, Nullable: true},
			to:   schema.Column{Name: "n", Type: schema.Type{Kind: schema.BigInteger}, Default: &def},
			want: []string{
				`ALTER TABLE "t" ALTER COLUMN "n" TYPE BIGINT`,
				`ALTER TABLE "t" ALTER COLUMN "n" SET NOT NULL`,
				`ALTER TABLE "t" ALTER COLUMN "n" SET DEFAULT 0`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ddl.AlterColumn("t", &tt.from, &tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("statements = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("statements[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAddAndDropColumn(t *testing.T) {
	ddl := NewDDL("postgres")
	col := &schema.Column{Name: "created_at", Type: schema.Type{Kind: schema.DateTime}, Nullable: true}

	if got := ddl.AddColumn("events", col); got != `ALTER TABLE "events" ADD COLUMN "created_at" TIMESTAMP` {
		t.Errorf("AddColumn = %q", got)
	}
	if got := ddl.DropColumn("events", "created_at"); got != `ALTER TABLE "events" DROP COLUMN "created_at"` {
		t.Errorf("DropColumn = %q", got)
	}
}

func TestCopyColumnsExplicitList(t *testing.T) {
	ddl := NewDDL("sqlite")
	got := ddl.CopyColumns("users", "_temp_users", []string{"id", "email"})
	want := `INSERT INTO "users" ("id", "email") SELECT "id", "email" FROM "_temp_users"`
	if got != want {
		t.Errorf("CopyColumns = %q, want %q", got, want)
	}
	if strings.Contains(got, "*") {
		t.Errorf("copy statement must not use SELECT *: %q", got)
	}
}

func TestCreateTempCopy(t *testing.T) {
	got := NewDDL("sqlite").CreateTempCopy("_temp_users", "users")
	want := `CREATE TEMPORARY TABLE "_temp_users" AS SELECT * FROM "users"`
	if got != want {
		t.Errorf("CreateTempCopy = %q, want %q", got, want)
	}
}
