package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mcpanel/craftd/pkg/client"
)

type command struct{}

func (c command) apiClient(f APIFlags) (*client.Client, error) {
	url := f.APIUrl
	if url == "" {
		url = "http://127.0.0.1:8970"
	}
	cl := client.New(client.Config{BaseURL: url, Timeout: f.APITimeout})
	if !cl.IsReachable(context.Background()) {
		return nil, fmt.Errorf("daemon not reachable at %s - start it first with 'craftd serve'", url)
	}
	return cl, nil
}

func (c command) Start(id string, f APIFlags) error {
	cl, err := c.apiClient(f)
	if err != nil {
		return err
	}
	if err := cl.Start(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("server %s starting\n", id)
	return nil
}

func (c command) Stop(id string, f StopFlags) error {
	cl, err := c.apiClient(f.APIFlags)
	if err != nil {
		return err
	}
	if err := cl.Stop(context.Background(), id, f.Force); err != nil {
		return err
	}
	fmt.Printf("server %s stopping\n", id)
	return nil
}

func (c command) Restart(id string, f APIFlags) error {
	cl, err := c.apiClient(f)
	if err != nil {
		return err
	}
	if err := cl.Restart(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("server %s restarting\n", id)
	return nil
}

func (c command) Command(id, text string, f APIFlags) error {
	cl, err := c.apiClient(f)
	if err != nil {
		return err
	}
	return cl.Command(context.Background(), id, text)
}

func (c command) Status(id string, f APIFlags) error {
	cl, err := c.apiClient(f)
	if err != nil {
		return err
	}
	st, err := cl.Status(context.Background(), id)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func (c command) List(f APIFlags) error {
	cl, err := c.apiClient(f)
	if err != nil {
		return err
	}
	servers, err := cl.List(context.Background())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPLAYERS\tVERSION\tTPS\tUPTIME")
	for _, s := range servers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%.1f\t%ds\n",
			s.ID, s.Name, s.Status, len(s.Players), s.MaxPlayers, s.Version, s.TPS, s.UptimeSeconds)
	}
	return w.Flush()
}

func (c command) Console(id string, f ConsoleFlags) error {
	cl, err := c.apiClient(f.APIFlags)
	if err != nil {
		return err
	}
	out, err := cl.Console(context.Background(), id, f.Lines)
	if err != nil {
		return err
	}
	for _, line := range out.Lines {
		fmt.Println(line)
	}
	return nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
