package rtree

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/geopackage/core/user"
)

// Trigger name suffixes of the standard maintenance triggers.
var triggerSuffixes = []string{"insert", "update1", "update2", "update3", "update4", "delete"}

// TriggerNames returns the maintenance trigger names of the index.
func (x *Index) TriggerNames() []string {
	names := make([]string, len(triggerSuffixes))
	for i, s := range triggerSuffixes {
		names[i] = x.name + "_" + s
	}
	return names
}

// createStatements returns the DDL and load statements in execution order.
func (x *Index) createStatements() []string {
	r := strings.NewReplacer(
		"<r>", user.Quote(x.name),
		"<t>", user.Quote(x.table),
		"<c>", user.Quote(x.column),
		"<i>", user.Quote(x.pk),
	)
	trigger := func(suffix string) string { return user.Quote(x.name + "_" + suffix) }
	envelope := func(ref string) string {
		return fmt.Sprintf("%s(%s), %s(%s), %s(%s), %s(%s)",
			FuncMinX, ref, FuncMaxX, ref, FuncMinY, ref, FuncMaxY, ref)
	}

	stmts := []string{
		`CREATE VIRTUAL TABLE <r> USING rtree(id, minx, maxx, miny, maxy)`,

		`INSERT OR REPLACE INTO <r> SELECT <i>, ` + envelope("<c>") +
			` FROM <t> WHERE <c> NOT NULL AND NOT ` + FuncIsEmpty + `(<c>)`,

		`CREATE TRIGGER ` + trigger("insert") + ` AFTER INSERT ON <t>
			WHEN (NEW.<c> NOT NULL AND NOT ` + FuncIsEmpty + `(NEW.<c>))
			BEGIN
				INSERT OR REPLACE INTO <r> VALUES (NEW.<i>, ` + envelope("NEW.<c>") + `);
			END`,

		`CREATE TRIGGER ` + trigger("update1") + ` AFTER UPDATE OF <c> ON <t>
			WHEN OLD.<i> = NEW.<i> AND (NEW.<c> NOT NULL AND NOT ` + FuncIsEmpty + `(NEW.<c>))
			BEGIN
				INSERT OR REPLACE INTO <r> VALUES (NEW.<i>, ` + envelope("NEW.<c>") + `);
			END`,

		`CREATE TRIGGER ` + trigger("update2") + ` AFTER UPDATE OF <c> ON <t>
			WHEN OLD.<i> = NEW.<i> AND (NEW.<c> IS NULL OR ` + FuncIsEmpty + `(NEW.<c>))
			BEGIN
				DELETE FROM <r> WHERE id = OLD.<i>;
			END`,

		`CREATE TRIGGER ` + trigger("update3") + ` AFTER UPDATE ON <t>
			WHEN OLD.<i> != NEW.<i> AND (NEW.<c> NOT NULL AND NOT ` + FuncIsEmpty + `(NEW.<c>))
			BEGIN
				DELETE FROM <r> WHERE id = OLD.<i>;
				INSERT OR REPLACE INTO <r> VALUES (NEW.<i>, ` + envelope("NEW.<c>") + `);
			END`,

		`CREATE TRIGGER ` + trigger("update4") + ` AFTER UPDATE ON <t>
			WHEN OLD.<i> != NEW.<i> AND (NEW.<c> IS NULL OR ` + FuncIsEmpty + `(NEW.<c>))
			BEGIN
				DELETE FROM <r> WHERE id IN (OLD.<i>, NEW.<i>);
			END`,

		`CREATE TRIGGER ` + trigger("delete") + ` AFTER DELETE ON <t>
			WHEN OLD.<c> NOT NULL
			BEGIN
				DELETE FROM <r> WHERE id = OLD.<i>;
			END`,
	}
	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}

func (x *Index) dropStatements() []string {
	var stmts []string
	for _, name := range x.TriggerNames() {
		stmts = append(stmts, "DROP TRIGGER IF EXISTS "+user.Quote(name))
	}
	return append(stmts, "DROP TABLE IF EXISTS "+user.Quote(x.name))
}
