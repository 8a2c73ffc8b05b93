package client

import "time"

type Client struct {
	Id    int
	Name  string
	Email string
	// Company is optional; empty means not set.
	Company   string
	CreatedAt time.Time
}
