// Package customers is the reference tenant-scoped domain built on the data
// gateway. Every query takes its tenant and mode from the bound request
// scope; nothing here accepts a tenant parameter.
package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"billgate/pkg/apikey"
	"billgate/pkg/db"
)

type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Livemode  bool      `json:"livemode"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct {
	gw *db.Gateway
}

func NewRepo(gw *db.Gateway) *Repo {
	return &Repo{gw: gw}
}

func (r *Repo) List(ctx context.Context) ([]Customer, error) {
	tenantID, mode, err := r.gw.Scope(ctx)
	if err != nil {
		return nil, err
	}
	var out []Customer
	err = r.gw.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id,email,COALESCE(name,''),livemode,created_at
		  FROM customers WHERE tenant_id=$1 AND livemode=$2 ORDER BY created_at DESC`,
			tenantID, mode == apikey.Live)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c Customer
			if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.Livemode, &c.CreatedAt); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, email, name string) (Customer, error) {
	tenantID, mode, err := r.gw.Scope(ctx)
	if err != nil {
		return Customer{}, err
	}
	c := Customer{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Livemode:  mode == apikey.Live,
		CreatedAt: time.Now(),
	}
	err = r.gw.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO customers (id,tenant_id,email,name,livemode,created_at)
		  VALUES ($1,$2,$3,$4,$5,$6)`, c.ID, tenantID, c.Email, c.Name, c.Livemode, c.CreatedAt)
		return err
	})
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}
