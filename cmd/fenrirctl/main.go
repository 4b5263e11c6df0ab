// Command fenrirctl is a thin CLI client for fenrird, adapted from the
// teacher repository's cmd/client.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"matchbook/internal/engine"
	"matchbook/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the fenrird driver")
	action := flag.String("action", "place", "action: place | cancel | amend")

	sideStr := flag.String("side", "buy", "buy | sell")
	price := flag.Int64("price", 0, "price in ticks")
	qty := flag.Uint64("qty", 0, "quantity")
	orderID := flag.Uint64("id", 0, "order id (required for cancel/amend; 0 lets the driver mint one for place)")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	go readReports(conn)

	side := engine.Bid
	if strings.EqualFold(*sideStr, "sell") {
		side = engine.Ask
	}

	switch strings.ToLower(*action) {
	case "place":
		if *qty == 0 {
			log.Fatal("-qty is required for place")
		}
		if err := sendNewOrder(conn, *orderID, side, engine.Ticks(*price), *qty); err != nil {
			log.Fatalf("place failed: %v", err)
		}
		fmt.Printf("-> placed %s %d @ %d ticks\n", *sideStr, *qty, *price)
	case "cancel":
		if *orderID == 0 {
			log.Fatal("-id is required for cancel")
		}
		if err := sendCancelOrder(conn, *orderID); err != nil {
			log.Fatalf("cancel failed: %v", err)
		}
		fmt.Printf("-> cancel requested for id %d\n", *orderID)
	case "amend":
		if *orderID == 0 {
			log.Fatal("-id is required for amend")
		}
		if err := sendAmendOrder(conn, *orderID, engine.Ticks(*price), *qty); err != nil {
			log.Fatalf("amend failed: %v", err)
		}
		fmt.Printf("-> amend requested for id %d\n", *orderID)
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

func sendNewOrder(conn net.Conn, id uint64, side engine.Side, price engine.Ticks, qty uint64) error {
	buf := make([]byte, wire.BaseMessageHeaderLen+wire.NewOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)
	buf[10] = byte(side)
	binary.BigEndian.PutUint64(buf[11:19], uint64(int64(price)))
	binary.BigEndian.PutUint64(buf[19:27], qty)
	binary.BigEndian.PutUint64(buf[27:35], uint64(time.Now().Unix()))
	_, err := conn.Write(buf)
	return err
}

func sendCancelOrder(conn net.Conn, id uint64) error {
	buf := make([]byte, wire.BaseMessageHeaderLen+wire.CancelOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)
	_, err := conn.Write(buf)
	return err
}

func sendAmendOrder(conn net.Conn, id uint64, newPrice engine.Ticks, newQty uint64) error {
	buf := make([]byte, wire.BaseMessageHeaderLen+wire.AmendOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(wire.AmendOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)
	binary.BigEndian.PutUint64(buf[10:18], uint64(int64(newPrice)))
	binary.BigEndian.PutUint64(buf[18:26], newQty)
	_, err := conn.Write(buf)
	return err
}

func readReports(conn net.Conn) {
	for {
		header := make([]byte, wire.ReportFixedHeaderLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		reportType := wire.ReportMessageType(header[0])
		side := engine.Side(header[1])
		buyID := binary.BigEndian.Uint64(header[2:10])
		sellID := binary.BigEndian.Uint64(header[10:18])
		qty := binary.BigEndian.Uint64(header[18:26])
		price := int64(binary.BigEndian.Uint64(header[26:34]))
		errLen := binary.BigEndian.Uint16(header[34:36])

		var errStr string
		if errLen > 0 {
			errBuf := make([]byte, errLen)
			if _, err := io.ReadFull(conn, errBuf); err != nil {
				log.Printf("error reading report body: %v", err)
				return
			}
			errStr = string(errBuf)
		}

		if reportType == wire.ErrorReport {
			fmt.Printf("\n[ERROR] %s\n", errStr)
			continue
		}

		sideStr := "BUY"
		if side == engine.Ask {
			sideStr = "SELL"
		}
		fmt.Printf("\n[EXECUTION %s] buy=%d sell=%d qty=%d price=%d\n", sideStr, buyID, sellID, qty, price)
	}
}
