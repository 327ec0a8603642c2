package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Bootstrap creates the ERP tables and demo rows on a local sqlite database so
// the relay can run without access to the real ERP. Safe to run on every start.
func Bootstrap(db *sqlx.DB) error {
	if err := ensureSchema(db); err != nil {
		return err
	}
	return seedIfEmpty(db)
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products (ERP item master)
CREATE TABLE IF NOT EXISTS saprod(
  CodProd TEXT PRIMARY KEY,
  Descrip TEXT NOT NULL,
  CodInst TEXT,
  Precio1 NUMERIC NOT NULL DEFAULT 0 CHECK (Precio1 >= 0),
  Existen NUMERIC NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_saprod_descrip ON saprod(Descrip);

-- Customers
CREATE TABLE IF NOT EXISTS sacli(
  CodClie TEXT PRIMARY KEY,
  Descrip TEXT NOT NULL,
  ID3 TEXT,
  Direc1 TEXT,
  LimiteCred NUMERIC
);
CREATE INDEX IF NOT EXISTS idx_sacli_descrip ON sacli(Descrip);

-- Orders
CREATE TABLE IF NOT EXISTS safact(
  NumeroD TEXT PRIMARY KEY,
  CodClie TEXT NOT NULL,
  Descrip TEXT,
  FechaE TEXT NOT NULL,
  MtoTotal NUMERIC NOT NULL,
  Status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_safact_fechae ON safact(FechaE);

CREATE TABLE IF NOT EXISTS saitemfac(
  NumeroD TEXT NOT NULL REFERENCES safact(NumeroD) ON DELETE CASCADE,
  NroLinea INTEGER NOT NULL,
  CodItem TEXT NOT NULL,
  Descrip1 TEXT,
  Cantidad NUMERIC NOT NULL CHECK (Cantidad >= 1),
  Precio NUMERIC NOT NULL,
  PRIMARY KEY (NumeroD, NroLinea)
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM saprod`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/customers")

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO saprod(CodProd,Descrip,CodInst,Precio1,Existen) VALUES
	  ('LAP-001','Laptop 14 pulgadas','COMPUTO',999.00,10),
	  ('MON-024','Monitor 24 pulgadas','COMPUTO',149.90,7),
	  ('TEC-101','Teclado mecanico','PERIFERICOS',59.50,25),
	  ('RAT-202','Mouse inalambrico','PERIFERICOS',19.99,0),
	  ('IMP-303','Impresora laser','OFICINA',229.00,3)`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO sacli(CodClie,Descrip,ID3,Direc1,LimiteCred) VALUES
	  ('C001','Comercial Andina','J-30111222-1','Av. Bolivar 12',5000),
	  ('C002','Distribuidora Norte','J-40222333-2','Calle 5, Zona Industrial',2500),
	  ('C003','Cliente Contado','V-00000000','Mostrador',NULL)`); err != nil {
		return err
	}
	return tx.Commit()
}
