package main

import (
	"encoding/json"
	"fmt"
)

type SendCommand struct {
	Port string `long:"port" short:"p" description:"Serial port of the arm (prompts when omitted)"`
	Args struct {
		Command string `positional-arg-name:"json" description:"Command object, e.g. '{\"T\":105}'"`
	} `positional-args:"yes" required:"yes"`
}

func (c *SendCommand) Execute(args []string) error {
	raw := []byte(c.Args.Command)
	if !json.Valid(raw) {
		return fmt.Errorf("not valid JSON: %s", c.Args.Command)
	}

	ch, err := connectArm(c.Port)
	if err != nil {
		return err
	}
	defer ch.Close()

	replies, err := ch.SendRaw(raw)
	if err != nil {
		return err
	}
	if len(replies) == 0 {
		fmt.Println(dimStyle.Render("(no reply)"))
		return nil
	}
	for _, line := range replies {
		fmt.Println(line)
	}
	return nil
}
