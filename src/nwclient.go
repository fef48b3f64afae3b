package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Fan a byte stream out to TCP clients.
 *
 * Description:	One of these serves each listening port.  An accept
 *		goroutine admits any number of clients; each client
 *		gets its own writer goroutine fed through a bounded
 *		queue, so a stalled client never blocks the
 *		distribution loop.  A client whose queue fills, or
 *		whose socket write fails, is disconnected and can
 *		reconnect whenever it likes.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"sync"

	"github.com/rs/xid"
)

/* Default base port clients connect to. */
const NWCLIENT_SERVER_PORT = 3443

/* Blocks queued per client before it is considered dead. */
const NWCLIENT_MAX_BACKLOG = 256

type nwclient_t struct {
	id   string /* For the log. */
	conn net.Conn
	out  chan []byte
}

type nwclients_t struct {
	port     int
	listener net.Listener

	mu      sync.Mutex
	clients map[string]*nwclient_t
	ending  bool
}

/*-------------------------------------------------------------------
 *
 * Name:        nwclient_start
 *
 * Purpose:     Open a listening port and start accepting clients.
 *
 * Inputs:	port	- TCP port.  0 lets the OS choose (used by
 *			  the tests).
 *
 * Returns:	Handle for sending, or an error if the bind failed.
 *
 *-----------------------------------------------------------------*/

func nwclient_start(port int) (*nwclients_t, error) {
	var listener, listenErr = net.Listen("tcp", fmt.Sprintf(":%d", port))
	if listenErr != nil {
		return nil, fmt.Errorf("nwclient: listen on %d: %w", port, listenErr)
	}

	var n = &nwclients_t{
		port:     port,
		listener: listener,
		clients:  make(map[string]*nwclient_t),
	}

	go n.accept_thread()

	return n, nil
} /* end nwclient_start */

/* Actual listening address, for when port 0 was requested. */
func (n *nwclients_t) nwclient_addr() net.Addr {
	return n.listener.Addr()
}

func (n *nwclients_t) accept_thread() {
	for {
		var conn, acceptErr = n.listener.Accept()
		if acceptErr != nil {
			n.mu.Lock()
			var ending = n.ending
			n.mu.Unlock()
			if ending {
				return
			}
			report(V_WARN, "nwclient: accept on port %d: %v", n.port, acceptErr)
			continue
		}

		var client = &nwclient_t{
			id:   xid.New().String(),
			conn: conn,
			out:  make(chan []byte, NWCLIENT_MAX_BACKLOG),
		}

		n.mu.Lock()
		if n.ending {
			n.mu.Unlock()
			conn.Close()
			return
		}
		n.clients[client.id] = client
		n.mu.Unlock()

		report(V_INFO, "nwclient: client %s attached on port %d from %s",
			client.id, n.port, conn.RemoteAddr())

		go n.client_write_thread(client)
	}
} /* end accept_thread */

func (n *nwclients_t) client_write_thread(client *nwclient_t) {
	for buf := range client.out {
		var _, writeErr = client.conn.Write(buf)
		if writeErr != nil {
			report(V_INFO, "nwclient: client %s on port %d went away: %v",
				client.id, n.port, writeErr)
			n.drop_client(client)
			return
		}
	}

	/* Queue closed: shutdown. */
	client.conn.Close()
} /* end client_write_thread */

func (n *nwclients_t) drop_client(client *nwclient_t) {
	n.mu.Lock()
	var _, present = n.clients[client.id]
	if present {
		delete(n.clients, client.id)
	}
	n.mu.Unlock()

	client.conn.Close()

	if present {
		/* Drain anything the sender queued meanwhile so it never
		 * blocks on a dead client. */
		for {
			select {
			case <-client.out:
			default:
				return
			}
		}
	}
} /* end drop_client */

/*-------------------------------------------------------------------
 *
 * Name:        nwclient_send
 *
 * Purpose:     Queue a block of bytes for every connected client.
 *
 * Inputs:	data	- Bytes to deliver.  Copied once; the caller
 *			  may reuse its buffer immediately.
 *
 * Description:	Never blocks.  Delivery is best effort per client: a
 *		client whose queue is full is disconnected rather than
 *		allowed to stall the pipeline.
 *
 *-----------------------------------------------------------------*/

func (n *nwclients_t) nwclient_send(data []byte) {
	if len(data) == 0 {
		return
	}

	var buf = make([]byte, len(data))
	copy(buf, data)

	n.mu.Lock()
	var stale []*nwclient_t
	for _, client := range n.clients {
		select {
		case client.out <- buf:
		default:
			stale = append(stale, client)
		}
	}
	n.mu.Unlock()

	for _, client := range stale {
		report(V_WARN, "nwclient: client %s on port %d too slow, disconnecting",
			client.id, n.port)
		n.drop_client(client)
	}
} /* end nwclient_send */

/*-------------------------------------------------------------------
 *
 * Name:        nwclient_shutdown
 *
 * Purpose:     Close the listening socket and all client connections.
 *
 *-----------------------------------------------------------------*/

func (n *nwclients_t) nwclient_shutdown() {
	n.mu.Lock()
	if n.ending {
		n.mu.Unlock()
		return
	}
	n.ending = true
	var clients = make([]*nwclient_t, 0, len(n.clients))
	for _, client := range n.clients {
		clients = append(clients, client)
	}
	n.clients = make(map[string]*nwclient_t)
	n.mu.Unlock()

	n.listener.Close()

	for _, client := range clients {
		close(client.out)
	}
} /* end nwclient_shutdown */
