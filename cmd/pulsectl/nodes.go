package main

import (
	"pulse-backend/application/commands"
	"pulse-backend/domain/org"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const cliActor = "pulsectl"

func nodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List and edit diagram nodes",
	}
	cmd.AddCommand(nodesListCmd(), nodesAddCmd(), nodesRemoveCmd())
	return cmd
}

func nodesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <diagram-type>",
		Aliases: []string{"ls"},
		Short:   "List nodes as the role sees them",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diagramType, err := org.ParseDiagramType(args[0])
			if err != nil {
				return err
			}
			r, err := role()
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			snap, err := store.GetDiagram(cmd.Context(), diagramType)
			if err != nil {
				return err
			}

			view := org.RedactSnapshot(snap, org.ClearanceFor(r))
			var rows [][]string
			for _, n := range view.Nodes {
				rows = append(rows, []string{n.ID, n.Label, n.NodeType, string(n.PermissionLevel), check(!n.Restricted)})
			}
			Table([]string{"ID", "Label", "Type", "Level", "Visible"}, rows)
			Subtle.Printf("\n  %d nodes, %d edges\n", len(view.Nodes), len(view.Edges))
			return nil
		},
	}
}

func nodesAddCmd() *cobra.Command {
	var (
		id          string
		label       string
		description string
		nodeType    string
		parentID    string
		level       string
	)

	cmd := &cobra.Command{
		Use:   "add <diagram-type>",
		Short: "Create a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			diagramType, err := org.ParseDiagramType(args[0])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			commandBus, err := commandBus(store)
			if err != nil {
				return err
			}
			nodeID := id
			if nodeID == "" {
				nodeID = uuid.New().String()
			}

			err = commandBus.Send(cmd.Context(), commands.CreateNodeCommand{
				DiagramType:     diagramType,
				NodeID:          nodeID,
				ActorID:         cliActor,
				Label:           label,
				Description:     description,
				NodeType:        nodeType,
				ParentID:        parentID,
				PermissionLevel: org.PermissionLevel(level),
			})
			if err != nil {
				return err
			}
			Good.Printf("  %s node %s created\n", check(true), nodeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Node id (generated when empty)")
	cmd.Flags().StringVar(&label, "label", "", "Node label")
	cmd.Flags().StringVar(&description, "description", "", "Node description")
	cmd.Flags().StringVar(&nodeType, "type", "", "Node type")
	cmd.Flags().StringVar(&parentID, "parent", "", "Parent node id")
	cmd.Flags().StringVar(&level, "level", "", "Permission level (public, manager, admin)")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func nodesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <diagram-type> <node-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a node and every edge touching it",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diagramType, err := org.ParseDiagramType(args[0])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			commandBus, err := commandBus(store)
			if err != nil {
				return err
			}
			if err := commandBus.Send(cmd.Context(), commands.DeleteNodeCommand{
				DiagramType: diagramType,
				NodeID:      args[1],
				ActorID:     cliActor,
			}); err != nil {
				return err
			}
			Good.Printf("  %s node %s deleted\n", check(true), args[1])
			return nil
		},
	}
}

func edgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edges",
		Short: "Edit diagram edges",
	}
	cmd.AddCommand(edgesAddCmd(), edgesRemoveCmd())
	return cmd
}

func edgesAddCmd() *cobra.Command {
	var (
		id       string
		label    string
		edgeType string
	)

	cmd := &cobra.Command{
		Use:   "add <diagram-type> <source-id> <target-id>",
		Short: "Connect two nodes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			diagramType, err := org.ParseDiagramType(args[0])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			commandBus, err := commandBus(store)
			if err != nil {
				return err
			}
			edgeID := id
			if edgeID == "" {
				edgeID = uuid.New().String()
			}
			if err := commandBus.Send(cmd.Context(), commands.CreateEdgeCommand{
				DiagramType: diagramType,
				EdgeID:      edgeID,
				ActorID:     cliActor,
				SourceID:    args[1],
				TargetID:    args[2],
				Label:       label,
				EdgeType:    org.EdgeType(edgeType),
			}); err != nil {
				return err
			}
			Good.Printf("  %s edge %s created (%s → %s)\n", check(true), edgeID, args[1], args[2])
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Edge id (generated when empty)")
	cmd.Flags().StringVar(&label, "label", "", "Edge label")
	cmd.Flags().StringVar(&edgeType, "type", "", "Edge type (hierarchy, flow, sequence, collaboration)")
	return cmd
}

func edgesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <diagram-type> <edge-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an edge",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diagramType, err := org.ParseDiagramType(args[0])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			commandBus, err := commandBus(store)
			if err != nil {
				return err
			}
			if err := commandBus.Send(cmd.Context(), commands.DeleteEdgeCommand{
				DiagramType: diagramType,
				EdgeID:      args[1],
				ActorID:     cliActor,
			}); err != nil {
				return err
			}
			Good.Printf("  %s edge %s deleted\n", check(true), args[1])
			return nil
		},
	}
}
