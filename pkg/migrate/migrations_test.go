package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seoulmarket/marketplace-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "migration %s", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestCatalogMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "create_catalog_tables")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CHECK (stock >= 0)",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS products",
	} {
		require.True(t, strings.Contains(content, sub), "missing %q", sub)
	}
}

func TestOrdersMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_orders_tables")
	for _, sub := range []string{
		"CONSTRAINT payments_payment_key_key UNIQUE (payment_key)",
		"CONSTRAINT payments_order_id_key UNIQUE (order_id)",
		"CONSTRAINT orders_order_no_key UNIQUE (order_no)",
		"CHECK (total_pay_krw = items_subtotal_krw + shipping_fee_krw)",
		"'REFUND_REQUESTED'",
		"CREATE TABLE IF NOT EXISTS order_audit_logs",
		"DROP TABLE IF EXISTS order_audit_logs",
	} {
		require.True(t, strings.Contains(content, sub), "missing %q", sub)
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Seller Notes!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_seller_notes.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBrokenAnnotations(t *testing.T) {
	cases := map[string]string{
		"down_first": "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n",
		"unbalanced": "-- +goose Up\n-- +goose StatementBegin\nCREATE TABLE x();\n-- +goose Down\nDROP TABLE x;\n",
		"no_down":    "-- +goose Up\nCREATE TABLE x();\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "20260401000000_"+name+".sql"), []byte(body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}
}

func TestCreatedMigrationBoundsLockWait(t *testing.T) {
	path, err := migrate.CreateSQLMigration(t.TempDir(), "add order memo")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "SET LOCAL lock_timeout")
}
