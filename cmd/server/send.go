package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
)

var (
	sendHost  string
	sendPort  int
	sendBoard string
	sendWait  time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <request|output|init> <TYPE> <ID> [PARAM]",
	Short: "Send a single command to a board and print the values it returns",
	Example: `  server send request AI 1 1
  server send output DO 2 1 --board digital
  server send init PI 1 --host 192.168.0.40`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendHost, "host", "127.0.0.1", "Board address")
	sendCmd.Flags().IntVar(&sendPort, "port", 8888, "Board TCP port")
	sendCmd.Flags().StringVar(&sendBoard, "board", "digital", "Board type (legacy, digital, analog)")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 500*time.Millisecond, "How long to collect responses")
	rootCmd.AddCommand(sendCmd)
}

func parseCommand(s string) (hotmock.Command, error) {
	switch strings.ToLower(s) {
	case "request":
		return hotmock.Request, nil
	case "output":
		return hotmock.Output, nil
	case "init":
		return hotmock.Init, nil
	}
	return 0, fmt.Errorf("unknown command %q", s)
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := parseCommand(args[0])
	if err != nil {
		return err
	}
	typ, err := hotmock.ParseConnectorType(args[1])
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[2], err)
	}
	param := hotmock.NoParam
	if len(args) == 4 {
		if param, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("invalid param %q: %w", args[3], err)
		}
	}
	board, err := hotmock.ParseBoardType(sendBoard)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if devLogging {
		logger, _ = zap.NewDevelopment()
	}

	client := hotmock.NewClient(hotmock.DefaultOptions(), logger)
	if err := client.Initialize(cmd.Context(), board, sendHost, sendPort); err != nil {
		return err
	}
	defer client.Finalize()

	res, err := client.SendCommand(command, typ, id, param)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sent %s (%d bytes)\n", hotmock.EncodeCommand(command, typ, id, param), res.Bytes)

	// Alles empfangen, was innerhalb des Fensters ankommt
	deadline := time.Now().Add(sendWait)
	for time.Now().Before(deadline) {
		if _, err := client.PollAndReceive(); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}

	received := 0
	for {
		s, ok := client.PopOldestValue(typ, id)
		if !ok {
			break
		}
		received++
		fmt.Fprintf(out, "%s = %v\n", hotmock.Address{Type: typ, ID: id}, s.Value())
	}
	if received == 0 {
		fmt.Fprintln(out, "no response")
	}
	return nil
}
